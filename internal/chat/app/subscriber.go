package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/internal/chat/repository"
	"support_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSubscriberClosed is returned by Subscribe after Close.
var ErrSubscriberClosed = errors.New("subscriber closed")

// Handle identifies one live subscription.
type Handle string

// EventSource is what controllers need from the fan-out subscriber.
type EventSource interface {
	Subscribe(ctx context.Context, scope domain.Scope, onEvent func(domain.ChangeEvent)) (Handle, error)
	Unsubscribe(h Handle)
}

type subscription struct {
	scope   domain.Scope
	cancel  context.CancelFunc
	events  chan domain.ChangeEvent
	resync  chan struct{}
	overrun atomic.Bool
	done    chan struct{}
}

// Subscriber bridges the change feed into per-scope callbacks.
// Every subscription has its own buffer drained by one goroutine, so onEvent is never called concurrently for a handle.
type Subscriber struct {
	feed   repository.ChangeFeed
	buffer int

	mu     sync.Mutex
	subs   map[Handle]*subscription
	closed bool
}

// NewSubscriber create Subscriber, buffer is the per subscription event backlog
func NewSubscriber(feed repository.ChangeFeed, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 128
	}
	return &Subscriber{
		feed:   feed,
		buffer: buffer,
		subs:   make(map[Handle]*subscription),
	}
}

// Subscribe starts delivering events matching scope to onEvent.
// ctx bounds the subscribe call only; the subscription lives until Unsubscribe or Close.
// When the backlog overflows the pending events are dropped and one resync event is delivered instead.
func (s *Subscriber) Subscribe(ctx context.Context, scope domain.Scope, onEvent func(domain.ChangeEvent)) (Handle, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSubscriberClosed
	}
	s.mu.Unlock()

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{
		scope:  scope,
		cancel: cancel,
		events: make(chan domain.ChangeEvent, s.buffer),
		resync: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	stop := context.AfterFunc(ctx, cancel)
	err := s.feed.Subscribe(subCtx, scope.Channel(), sub.enqueue)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		cancel()
		return "", err
	}

	h := Handle(uuid.New().String())
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return "", ErrSubscriberClosed
	}
	s.subs[h] = sub
	s.mu.Unlock()

	go sub.drain(onEvent)

	logger.Log.Debug("subscribed",
		zap.String("handle", string(h)),
		zap.String("scope", string(scope.Kind)),
		zap.String("conversation_id", scope.ConversationID),
	)
	return h, nil
}

// Unsubscribe stops the subscription. Unknown or already removed handles are ignored.
func (s *Subscriber) Unsubscribe(h Handle) {
	s.mu.Lock()
	sub, ok := s.subs[h]
	delete(s.subs, h)
	s.mu.Unlock()

	if ok {
		sub.stop()
		logger.Log.Debug("unsubscribed", zap.String("handle", string(h)))
	}
}

// Active reports the number of live subscriptions.
func (s *Subscriber) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close stops every subscription and rejects new ones.
func (s *Subscriber) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[Handle]*subscription)
	s.closed = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

func (sub *subscription) stop() {
	sub.cancel()
	close(sub.done)
}

// enqueue runs on the feed goroutine and must not block.
func (sub *subscription) enqueue(ev domain.ChangeEvent) {
	if !sub.scope.Matches(ev) {
		return
	}
	select {
	case sub.events <- ev:
	default:
		if sub.overrun.CompareAndSwap(false, true) {
			sub.resync <- struct{}{}
		}
	}
}

func (sub *subscription) drain(onEvent func(domain.ChangeEvent)) {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.resync:
			// the backlog is stale once a resync goes out
			for len(sub.events) > 0 {
				<-sub.events
			}
			sub.overrun.Store(false)
			onEvent(domain.ChangeEvent{
				Kind:           domain.EventResync,
				ConversationID: sub.scope.ConversationID,
				OccurredAt:     domain.Now(),
			})
		case ev := <-sub.events:
			select {
			case <-sub.done:
				return
			default:
			}
			onEvent(ev)
		}
	}
}
