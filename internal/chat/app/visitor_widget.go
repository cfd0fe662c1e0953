package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// VisitorWidget drives one visitor connection: resume or start, live messages, send.
type VisitorWidget struct {
	sessionID     string
	conversations ConversationService
	messages      MessageService
	events        EventSource
	limiter       SendLimiter
	sink          Sink
	timeout       time.Duration

	mu       sync.Mutex
	conv     *domain.Conversation
	timeline *Timeline
	handle   Handle
	closed   bool
}

// VisitorDeps groups the collaborators of a VisitorWidget.
type VisitorDeps struct {
	Conversations ConversationService
	Messages      MessageService
	Events        EventSource
	Limiter       SendLimiter
	StoreTimeout  time.Duration
}

// NewVisitorWidget create VisitorWidget for sessionID, results are pushed to sink
func NewVisitorWidget(sessionID string, deps VisitorDeps, sink Sink) *VisitorWidget {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = NopLimiter()
	}
	return &VisitorWidget{
		sessionID:     sessionID,
		conversations: deps.Conversations,
		messages:      deps.Messages,
		events:        deps.Events,
		limiter:       limiter,
		sink:          sink,
		timeout:       deps.StoreTimeout,
		timeline:      NewTimeline(),
	}
}

// Open resumes the visitor's conversation or asks for a name.
func (w *VisitorWidget) Open(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resumeLocked(ctx)
}

func (w *VisitorWidget) resumeLocked(ctx context.Context) error {
	sctx, cancel := storeContext(ctx, w.timeout)
	conv, err := w.conversations.Resume(sctx, w.sessionID)
	cancel()
	if err != nil {
		return w.fail(err)
	}
	if conv == nil {
		w.detachLocked()
		w.sink.Push(pushed(domain.NameRequired, nil))
		return nil
	}
	return w.attachLocked(ctx, conv)
}

// attachLocked subscribes before listing so nothing sent in between is missed.
func (w *VisitorWidget) attachLocked(ctx context.Context, conv *domain.Conversation) error {
	if w.handle == "" || w.conv == nil || w.conv.ID != conv.ID {
		w.detachLocked()
		h, err := w.events.Subscribe(ctx, domain.ConversationScope(conv.ID), w.onEvent)
		if err != nil {
			return w.fail(err)
		}
		w.handle = h
	}
	w.conv = conv

	sctx, cancel := storeContext(ctx, w.timeout)
	msgs, err := w.messages.List(sctx, conv.ID)
	cancel()
	if err != nil {
		return w.fail(err)
	}
	w.timeline.Reset(msgs)
	w.pushSnapshotLocked()
	return nil
}

func (w *VisitorWidget) detachLocked() {
	if w.handle != "" {
		w.events.Unsubscribe(w.handle)
		w.handle = ""
	}
	w.conv = nil
	w.timeline.Reset(nil)
}

// StartChat starts a conversation under name.
func (w *VisitorWidget) StartChat(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return w.fail(domain.ErrEmptyVisitorName)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// a closed conversation may be followed by a new one
	if w.conv != nil && !w.conv.IsClosed() {
		return w.fail(domain.ErrConversationExists)
	}

	sctx, cancel := storeContext(ctx, w.timeout)
	conv, err := w.conversations.Start(sctx, w.sessionID, name)
	cancel()
	if err != nil {
		return w.fail(err)
	}
	logger.Log.Info("visitor started chat", zap.String("conversation_id", conv.ID))
	return w.attachLocked(ctx, conv)
}

// Send posts body as the visitor. A failed send leaves the timeline untouched.
func (w *VisitorWidget) Send(ctx context.Context, body string) error {
	if strings.TrimSpace(body) == "" {
		return w.fail(domain.ErrEmptyBody)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conv == nil {
		return w.fail(domain.ErrNoConversation)
	}
	if w.conv.IsClosed() {
		return w.fail(domain.ErrConversationClosed)
	}
	if !allowSend(ctx, w.limiter, w.sessionID) {
		return w.fail(domain.ErrRateLimited)
	}

	sctx, cancel := storeContext(ctx, w.timeout)
	msg, err := w.messages.Send(sctx, w.conv.ID, domain.RoleVisitor, body)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrConversationClosed) {
			w.conv.Status = domain.StatusClosed
		}
		return w.fail(err)
	}

	if msg.CreatedAt.After(w.conv.LastMessageAt) {
		w.conv.LastMessageAt = msg.CreatedAt
	}
	w.sink.Push(pushed(domain.SendMessage, map[string]interface{}{"message_id": msg.ID}))
	// the feed may have delivered it already
	if added := w.timeline.Merge(*msg); len(added) > 0 {
		w.sink.Push(pushed(domain.NotifyMessage, map[string]interface{}{"message": *msg}))
	}
	return nil
}

// Refresh re-reads the conversation and every message.
func (w *VisitorWidget) Refresh(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.resumeLocked(ctx)
}

// Close releases the subscription. The widget is unusable afterwards.
func (w *VisitorWidget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.handle != "" {
		w.events.Unsubscribe(w.handle)
		w.handle = ""
	}
	w.closed = true
}

// Conversation returns the attached conversation, nil before start.
func (w *VisitorWidget) Conversation() *domain.Conversation {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conv == nil {
		return nil
	}
	c := *w.conv
	return &c
}

// Messages returns the merged timeline.
func (w *VisitorWidget) Messages() []domain.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timeline.Messages()
}

func (w *VisitorWidget) onEvent(ev domain.ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.conv == nil || ev.ConversationID != w.conv.ID {
		return
	}

	switch ev.Kind {
	case domain.EventMessageInserted:
		if ev.Message == nil {
			return
		}
		if added := w.timeline.Merge(*ev.Message); len(added) > 0 {
			w.sink.Push(pushed(domain.NotifyMessage, map[string]interface{}{"message": *ev.Message}))
		}
		if ev.Message.CreatedAt.After(w.conv.LastMessageAt) {
			w.conv.LastMessageAt = ev.Message.CreatedAt
		}

	case domain.EventMessagesRead:
		if w.timeline.ApplyRead(ev.ReadRole) > 0 {
			w.sink.Push(pushed(domain.NotifyMessagesRead, map[string]interface{}{"read_role": ev.ReadRole}))
		}

	case domain.EventConversationChanged:
		if ev.Conversation == nil {
			return
		}
		merged := w.conv.Supersede(*ev.Conversation)
		w.conv = &merged
		w.sink.Push(pushed(domain.NotifyConversation, map[string]interface{}{"conversation": merged}))

	case domain.EventConversationDeleted:
		w.detachLocked()
		w.sink.Push(pushed(domain.NotifyConversationGone, map[string]interface{}{"conversation_id": ev.ConversationID}))
		w.sink.Push(pushed(domain.NameRequired, nil))

	case domain.EventResync:
		_ = w.resumeLocked(context.Background())
	}
}

func (w *VisitorWidget) pushSnapshotLocked() {
	w.sink.Push(pushed(domain.ConversationSnapshot, map[string]interface{}{
		"conversation": *w.conv,
		"messages":     w.timeline.Messages(),
	}))
}

// fail turns err into a notice and returns it.
func (w *VisitorWidget) fail(err error) error {
	if !domain.IsValidation(err) {
		logger.Log.Debug("visitor action failed", zap.String("session", w.sessionID), zap.Error(err))
	}
	w.sink.Push(noticeResponse(err))
	return err
}
