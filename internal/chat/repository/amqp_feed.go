package repository

import (
	"context"
	"fmt"
	"sync"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AMQPFeed fans change events out through a RabbitMQ topic exchange.
// Every subscription owns an exclusive auto-delete queue bound by routing key.
type AMQPFeed struct {
	conn     *amqp.Connection
	exchange string

	mu  sync.Mutex
	pub *amqp.Channel
}

// NewAMQPFeed declares exchange and opens the publishing channel
func NewAMQPFeed(conn *amqp.Connection, exchange string) (*AMQPFeed, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPFeed{conn: conn, exchange: exchange, pub: ch}, nil
}

// Publish routes the event by its channel name
func (f *AMQPFeed) Publish(ctx context.Context, channel string, event domain.ChangeEvent) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// amqp.Channel is not safe for concurrent publishers
	f.mu.Lock()
	defer f.mu.Unlock()
	err = f.pub.Publish(f.exchange, dottedSubject(channel), false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   event.OccurredAt,
		Body:        data,
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe declares a private queue bound to channel and consumes it until ctx ends
func (f *AMQPFeed) Subscribe(ctx context.Context, channel string, handler func(domain.ChangeEvent)) error {
	ch, err := f.conn.Channel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, dottedSubject(channel), f.exchange, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("bind queue %s: %w", channel, err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					logger.Log.Warn("amqp deliveries closed", zap.String("channel", channel))
					return
				}
				ev, err := decodeEvent(d.Body)
				if err != nil {
					logger.Log.Warn("drop undecodable event", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(ev)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Close closes the publishing channel
func (f *AMQPFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pub.Close()
}
