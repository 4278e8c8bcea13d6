package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEmitter_Emit(t *testing.T) {
	var buf bytes.Buffer

	ctx := WithSession(context.Background(), "s-1")
	NewLogEmitter(&buf).Emit(ctx, Event{
		Type: CapabilityCall,
		Tool: "get_monthly_total",
		Args: json.RawMessage(`{"year":2025,"month":11}`),
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "capability.call", line["event"])
	assert.Equal(t, "s-1", line["session_id"])
	assert.Equal(t, "get_monthly_total", line["tool"])
	assert.Equal(t, "audit", line["stream"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, float64(11), line["args"].(map[string]any)["month"])
}

func TestLogEmitter_ErrorsAreWarnings(t *testing.T) {
	var buf bytes.Buffer

	NewLogEmitter(&buf).Emit(context.Background(), Event{Type: CapabilityError, Detail: "store unavailable"})

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "store unavailable")
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestAMQPEmitter_Emit(t *testing.T) {
	ch := &fakeChannel{}
	at := time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)

	newAMQPEmitter(ch, "spendsight.audit", nil).Emit(context.Background(), Event{
		Type:      ResultTruncated,
		SessionID: "s-2",
		Tool:      "get_transactions",
		At:        at,
	})

	assert.Equal(t, "spendsight.audit", ch.exchange)
	assert.Equal(t, "audit.capability.truncated", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, at, ch.msg.Timestamp)

	var got Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, ResultTruncated, got.Type)
	assert.Equal(t, "s-2", got.SessionID)
}

func TestAMQPEmitter_PublishFailureIsSwallowed(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}

	assert.NotPanics(t, func() {
		newAMQPEmitter(ch, "x", nil).Emit(context.Background(), Event{Type: InsightFailed})
	})
}

func TestMulti(t *testing.T) {
	var a, b bytes.Buffer

	Multi{NewLogEmitter(&a), Nop{}, NewLogEmitter(&b)}.Emit(context.Background(), Event{Type: InsightGenerated})

	assert.True(t, strings.Contains(a.String(), "insight.generated"))
	assert.True(t, strings.Contains(b.String(), "insight.generated"))
}
