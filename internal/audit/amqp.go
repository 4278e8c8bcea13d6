package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp091.Channel the emitter uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPEmitter publishes events to a durable topic exchange with routing key
// "audit.<event type>". Publish failures are logged and never reach the caller.
type AMQPEmitter struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
	logger   *slog.Logger
}

func NewAMQPEmitter(url, exchange string, logger *slog.Logger) (*AMQPEmitter, error) {
	conn, err := amqp091.DialConfig(url, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange: %w", err)
	}

	e := newAMQPEmitter(ch, exchange, logger)
	e.conn = conn

	return e, nil
}

func newAMQPEmitter(ch channel, exchange string, logger *slog.Logger) *AMQPEmitter {
	if logger == nil {
		logger = slog.Default()
	}

	return &AMQPEmitter{channel: ch, exchange: exchange, logger: logger}
}

func (a *AMQPEmitter) Emit(ctx context.Context, e Event) {
	e = stamp(ctx, e)

	body, err := json.Marshal(e)
	if err != nil {
		a.logger.Error("failed to encode audit event", "event", e.Type, "error", err)
		return
	}

	err = a.channel.PublishWithContext(ctx, a.exchange, "audit."+string(e.Type), false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   e.At,
		Body:        body,
	})
	if err != nil {
		a.logger.Warn("failed to publish audit event", "event", e.Type, "exchange", a.exchange, "error", err)
	}
}

func (a *AMQPEmitter) Close() error {
	if a.conn == nil {
		return nil
	}

	return a.conn.Close()
}
