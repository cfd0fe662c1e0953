package repository

import (
	"context"
	"fmt"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPubSub definition redis pub/sub change feed
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish encode the event and publish it on channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event domain.ChangeEvent) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe waits for the subscription confirmation, then hands every event of channel to handler until ctx ends
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(domain.ChangeEvent)) error {
	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				ev, err := decodeEvent([]byte(m.Payload))
				if err != nil {
					logger.Log.Warn("drop undecodable event", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(ev)
			case <-ctx.Done():
				logger.Log.Debug("redis subscription closed", zap.String("channel", channel))
				return
			}
		}
	}()
	return nil
}

// Close is a no-op, the client is owned by the caller.
func (r *RedisPubSub) Close() error {
	return nil
}
