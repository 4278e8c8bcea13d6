package app

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/spendsight/internal/config"
)

func TestApp_CloseReverseOrder(t *testing.T) {
	var order []string

	a := &App{closers: []func() error{
		func() error { order = append(order, "db"); return errors.New("db close") },
		func() error { order = append(order, "redis"); return nil },
		func() error { order = append(order, "amqp"); return errors.New("amqp close") },
	}}

	err := a.Close()

	assert.Equal(t, []string{"amqp", "redis", "db"}, order)
	assert.EqualError(t, err, "amqp close")
}

func TestOptions(t *testing.T) {
	var buf bytes.Buffer

	o := options{withAgent: true}
	WithoutAgent()(&o)
	WithAuditOutput(&buf)(&o)

	assert.False(t, o.withAgent)
	assert.Same(t, &buf, o.auditOutput)
}

func TestMemoryStore_InProcessWithoutRedis(t *testing.T) {
	cfg := &config.Config{}
	cfg.Agent.MemoryWindow = 4

	a := &App{}

	store, err := a.memoryStore(cfg)

	assert.NoError(t, err)
	assert.NotNil(t, store)
	assert.Empty(t, a.closers)
}

func TestMemoryStore_BadRedisURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.URL = "not a url"

	_, err := (&App{}).memoryStore(cfg)

	assert.ErrorContains(t, err, "parsing REDIS_URL")
}
