package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/spendsight/internal/llm"
)

// RedisStore shares conversation windows between API instances. Each session
// is a list trimmed to the window size on every append.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	window int
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, window int, ttl time.Duration) *RedisStore {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "spendsight:memory"
	}

	if window <= 0 {
		window = DefaultWindow
	}

	return &RedisStore{client: client, prefix: prefix, window: window, ttl: ttl}
}

func (s *RedisStore) Conversation(sessionID string) Conversation {
	return &redisConversation{store: s, key: s.key(sessionID)}
}

func (s *RedisStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, sessionID)
}

type redisConversation struct {
	store *RedisStore
	key   string
}

func (c *redisConversation) Messages(ctx context.Context) ([]llm.Message, error) {
	raw, err := c.store.client.LRange(ctx, c.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading conversation: %w", err)
	}

	return decodeMessages(raw)
}

func (c *redisConversation) Append(ctx context.Context, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values, err := encodeMessages(msgs)
	if err != nil {
		return err
	}

	_, err = c.store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, c.key, values...)
		pipe.LTrim(ctx, c.key, int64(-c.store.window), -1)

		if c.store.ttl > 0 {
			pipe.Expire(ctx, c.key, c.store.ttl)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("appending to conversation: %w", err)
	}

	return nil
}

func encodeMessages(msgs []llm.Message) ([]any, error) {
	values := make([]any, 0, len(msgs))

	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encoding message: %w", err)
		}

		values = append(values, string(b))
	}

	return values, nil
}

func decodeMessages(raw []string) ([]llm.Message, error) {
	msgs := make([]llm.Message, 0, len(raw))

	for _, r := range raw {
		var m llm.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decoding message: %w", err)
		}

		msgs = append(msgs, m)
	}

	return msgs, nil
}
