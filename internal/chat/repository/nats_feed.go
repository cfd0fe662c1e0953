package repository

import (
	"context"
	"fmt"
	"time"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/pkg/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSFeed publishes change events on core NATS subjects.
type NATSFeed struct {
	nc *nats.Conn
}

// NewNATSFeed create NATSFeed
func NewNATSFeed(nc *nats.Conn) *NATSFeed {
	return &NATSFeed{nc: nc}
}

// Publish the event on the dotted subject of channel
func (f *NATSFeed) Publish(_ context.Context, channel string, event domain.ChangeEvent) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := f.nc.Publish(dottedSubject(channel), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe registers handler and flushes so the server knows the interest before returning
func (f *NATSFeed) Subscribe(ctx context.Context, channel string, handler func(domain.ChangeEvent)) error {
	subject := dottedSubject(channel)
	sub, err := f.nc.Subscribe(subject, func(m *nats.Msg) {
		ev, err := decodeEvent(m.Data)
		if err != nil {
			logger.Log.Warn("drop undecodable event", zap.String("subject", subject), zap.Error(err))
			return
		}
		handler(ev)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	if err := f.nc.FlushTimeout(2 * time.Second); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("nats flush %s: %w", subject, err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
			logger.Log.Warn("nats unsubscribe", zap.String("subject", subject), zap.Error(err))
		}
	}()
	return nil
}

// Close drains the connection
func (f *NATSFeed) Close() error {
	return f.nc.Drain()
}
