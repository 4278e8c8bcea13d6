package audit

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// LogEmitter writes one JSON line per event.
type LogEmitter struct {
	logger zerolog.Logger
}

func NewLogEmitter(w io.Writer) *LogEmitter {
	return &LogEmitter{logger: zerolog.New(w).With().Timestamp().Str("stream", "audit").Logger()}
}

func (l *LogEmitter) Emit(ctx context.Context, e Event) {
	e = stamp(ctx, e)

	ev := l.logger.Info()
	if e.Type == CapabilityError || e.Type == InsightFailed {
		ev = l.logger.Warn()
	}

	ev = ev.Str("event", string(e.Type)).Time("at", e.At)

	if e.SessionID != "" {
		ev = ev.Str("session_id", e.SessionID)
	}

	if e.Tool != "" {
		ev = ev.Str("tool", e.Tool)
	}

	if len(e.Args) > 0 {
		ev = ev.RawJSON("args", e.Args)
	}

	if e.Detail != "" {
		ev = ev.Str("detail", e.Detail)
	}

	ev.Send()
}
