package repository

import (
	"context"
	"errors"
	"sync"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// ErrFeedClosed is returned after Close.
var ErrFeedClosed = errors.New("change feed closed")

// LocalFeed is an in-process change feed for single node runs and tests.
// Each handler receives its own decoded copy, the same as over a broker.
type LocalFeed struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]func(domain.ChangeEvent)
	nextID uint64
	closed bool
}

// NewLocalFeed create LocalFeed
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[string]map[uint64]func(domain.ChangeEvent))}
}

// Publish delivers the event synchronously to every current subscriber of channel
func (f *LocalFeed) Publish(ctx context.Context, channel string, event domain.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return ErrFeedClosed
	}
	handlers := make([]func(domain.ChangeEvent), 0, len(f.subs[channel]))
	for _, h := range f.subs[channel] {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		ev, err := decodeEvent(data)
		if err != nil {
			logger.Log.Warn("drop undecodable event", zap.String("channel", channel), zap.Error(err))
			return err
		}
		h(ev)
	}
	return nil
}

// Subscribe registers handler on channel until ctx ends
func (f *LocalFeed) Subscribe(ctx context.Context, channel string, handler func(domain.ChangeEvent)) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFeedClosed
	}
	f.nextID++
	id := f.nextID
	if f.subs[channel] == nil {
		f.subs[channel] = make(map[uint64]func(domain.ChangeEvent))
	}
	f.subs[channel][id] = handler
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[channel], id)
		if len(f.subs[channel]) == 0 {
			delete(f.subs, channel)
		}
	}()
	return nil
}

// Subscribers reports the number of live handlers on channel.
func (f *LocalFeed) Subscribers(channel string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[channel])
}

// Close rejects further use and drops every handler
func (f *LocalFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.subs = make(map[string]map[uint64]func(domain.ChangeEvent))
	return nil
}
