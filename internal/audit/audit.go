// Package audit records what the agent asked for and what it got back. Events
// go to a structured log and, when configured, to a RabbitMQ exchange.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

type EventType string

const (
	CapabilityCall      EventType = "capability.call"
	CapabilityResult    EventType = "capability.result"
	CapabilityError     EventType = "capability.error"
	ResultTruncated     EventType = "capability.truncated"
	LengthExceeded      EventType = "output.length_exceeded"
	IterationsExhausted EventType = "agent.iterations_exhausted"
	InsightGenerated    EventType = "insight.generated"
	InsightFailed       EventType = "insight.failed"
	RawQuery            EventType = "query.raw"
)

type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	At        time.Time       `json:"at"`
}

type Emitter interface {
	Emit(ctx context.Context, e Event)
}

type sessionKey struct{}

func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

func SessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// Multi fans an event out to every emitter in order.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, e Event) {
	for _, em := range m {
		em.Emit(ctx, e)
	}
}

// stamp fills the fields every sink needs.
func stamp(ctx context.Context, e Event) Event {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	if e.SessionID == "" {
		e.SessionID = SessionFrom(ctx)
	}

	return e
}
