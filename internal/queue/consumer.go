package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one decoded event. A returned error rejects the message
// without requeue so a poison message cannot loop forever.
type Handler func(ctx context.Context, event Event) error

// Consume connects to the broker and processes reservation.events until the
// context is cancelled. Connection loss triggers reconnect with exponential
// backoff capped at 30s.
func Consume(ctx context.Context, url string, handler Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("broker dial failed, retrying", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(ctx, conn, handler, logger); err != nil {
			logger.Warn("consume loop ended, reconnecting", zap.Error(err))
		}
		_ = conn.Close()
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handler Handler, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("set qos failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(ReservationQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(ReservationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			var event Event
			if err := json.Unmarshal(d.Body, &event); err != nil {
				logger.Error("malformed event dropped", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(ctx, event); err != nil {
				logger.Error("event handler failed",
					zap.String("kind", event.Kind),
					zap.String("reservation_id", event.ReservationID),
					zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
