package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// AdminInbox drives one admin connection: the live conversation list plus at most one selected conversation.
type AdminInbox struct {
	admin         domain.Participant
	conversations ConversationService
	messages      MessageService
	events        EventSource
	sink          Sink
	timeout       time.Duration

	mu           sync.Mutex
	inbox        *InboxList
	inboxHandle  Handle
	selected     string
	timeline     *Timeline
	detailHandle Handle
	closed       bool
}

// AdminDeps groups the collaborators of an AdminInbox.
type AdminDeps struct {
	Conversations ConversationService
	Messages      MessageService
	Events        EventSource
	StoreTimeout  time.Duration
}

// NewAdminInbox create AdminInbox for admin, results are pushed to sink
func NewAdminInbox(admin domain.Participant, deps AdminDeps, sink Sink) *AdminInbox {
	return &AdminInbox{
		admin:         admin,
		conversations: deps.Conversations,
		messages:      deps.Messages,
		events:        deps.Events,
		sink:          sink,
		timeout:       deps.StoreTimeout,
		inbox:         NewInboxList(),
		timeline:      NewTimeline(),
	}
}

// Open subscribes to every conversation, then loads the inbox.
func (a *AdminInbox) Open(ctx context.Context) error {
	if !a.admin.IsAdmin() {
		return a.fail(domain.ErrForbidden)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.subscribeInboxLocked(ctx); err != nil {
		return err
	}
	return a.loadInboxLocked(ctx)
}

// subscribeInboxLocked is a no-op while the inbox subscription is live.
func (a *AdminInbox) subscribeInboxLocked(ctx context.Context) error {
	if a.inboxHandle != "" {
		return nil
	}
	h, err := a.events.Subscribe(ctx, domain.InboxScope(), a.onInboxEvent)
	if err != nil {
		return a.fail(err)
	}
	a.inboxHandle = h
	return nil
}

func (a *AdminInbox) loadInboxLocked(ctx context.Context) error {
	sctx, cancel := storeContext(ctx, a.timeout)
	list, err := a.conversations.Inbox(sctx)
	cancel()
	if err != nil {
		return a.fail(err)
	}
	a.inbox.Reset(list)
	a.sink.Push(pushed(domain.InboxSnapshot, map[string]interface{}{"conversations": a.inbox.Items()}))
	return nil
}

// Select opens conversation id: subscribe, list, mark visitor messages read.
// The previous selection is dropped only once the new one loaded.
func (a *AdminInbox) Select(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return a.fail(domain.ErrInvalidScope)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	h, err := a.events.Subscribe(ctx, domain.AdminConversationScope(id), a.onDetailEvent)
	if err != nil {
		return a.fail(err)
	}

	conv, msgs, err := a.loadConversationLocked(ctx, id)
	if err != nil {
		a.events.Unsubscribe(h)
		return a.fail(err)
	}

	if a.detailHandle != "" {
		a.events.Unsubscribe(a.detailHandle)
	}
	a.detailHandle = h
	a.selected = id
	a.timeline.Reset(msgs)
	a.inbox.Upsert(*conv)

	a.markReadLocked(ctx)
	a.pushDetailLocked(conv)
	return nil
}

func (a *AdminInbox) loadConversationLocked(ctx context.Context, id string) (*domain.Conversation, []domain.Message, error) {
	sctx, cancel := storeContext(ctx, a.timeout)
	defer cancel()

	conv, err := a.conversations.Get(sctx, id)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := a.messages.List(sctx, id)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

// markReadLocked flips the visitor messages of the selection, failures only log.
func (a *AdminInbox) markReadLocked(ctx context.Context) {
	sctx, cancel := storeContext(ctx, a.timeout)
	_, err := a.messages.MarkRead(sctx, a.selected, domain.RoleAdmin)
	cancel()
	if err != nil {
		logger.Log.Warn("mark read failed", zap.String("conversation_id", a.selected), zap.Error(err))
		return
	}
	a.timeline.ApplyRead(domain.RoleVisitor)
	a.inbox.ResetUnread(a.selected)
}

func (a *AdminInbox) pushDetailLocked(conv *domain.Conversation) {
	a.sink.Push(pushed(domain.ConversationSnapshot, map[string]interface{}{
		"conversation": *conv,
		"messages":     a.timeline.Messages(),
	}))
	if row, ok := a.inbox.Get(conv.ID); ok {
		a.sink.Push(pushed(domain.NotifyConversation, map[string]interface{}{"conversation": row}))
	}
}

// Leave drops the selected conversation.
func (a *AdminInbox) Leave() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.leaveLocked()
}

func (a *AdminInbox) leaveLocked() {
	if a.detailHandle != "" {
		a.events.Unsubscribe(a.detailHandle)
		a.detailHandle = ""
	}
	a.selected = ""
	a.timeline.Reset(nil)
}

// Reply sends body as admin to the selected conversation.
func (a *AdminInbox) Reply(ctx context.Context, body string) error {
	if strings.TrimSpace(body) == "" {
		return a.fail(domain.ErrEmptyBody)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected == "" {
		return a.fail(domain.ErrNoConversation)
	}

	sctx, cancel := storeContext(ctx, a.timeout)
	msg, err := a.messages.Send(sctx, a.selected, domain.RoleAdmin, body)
	cancel()
	if err != nil {
		return a.fail(err)
	}

	a.sink.Push(pushed(domain.SendMessage, map[string]interface{}{"message_id": msg.ID}))
	if added := a.timeline.Merge(*msg); len(added) > 0 {
		a.sink.Push(pushed(domain.NotifyMessage, map[string]interface{}{"message": *msg}))
	}
	return nil
}

// CloseConversation closes id. Closing twice is fine.
func (a *AdminInbox) CloseConversation(ctx context.Context, id string) error {
	sctx, cancel := storeContext(ctx, a.timeout)
	err := a.conversations.Close(sctx, a.admin, id)
	cancel()
	if err != nil {
		return a.fail(err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if row, ok := a.inbox.Get(id); ok {
		closed := row.Conversation
		closed.Status = domain.StatusClosed
		a.inbox.Upsert(closed)
	}
	a.sink.Push(pushed(domain.CloseConversation, map[string]interface{}{"conversation_id": id}))
	return nil
}

// DeleteConversation deletes id and its messages.
func (a *AdminInbox) DeleteConversation(ctx context.Context, id string) error {
	sctx, cancel := storeContext(ctx, a.timeout)
	err := a.conversations.Delete(sctx, a.admin, id)
	cancel()
	if err != nil {
		return a.fail(err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeLocked(id)
	a.sink.Push(pushed(domain.DeleteConversation, map[string]interface{}{"conversation_id": id}))
	return nil
}

// removeLocked reports the removal once, whether it came from this admin or the feed.
func (a *AdminInbox) removeLocked(id string) {
	if a.selected == id {
		a.leaveLocked()
	}
	if a.inbox.Remove(id) {
		a.sink.Push(pushed(domain.NotifyConversationGone, map[string]interface{}{"conversation_id": id}))
	}
}

// Refresh re-reads the inbox and the selected conversation.
func (a *AdminInbox) Refresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	return a.refreshLocked(ctx)
}

func (a *AdminInbox) refreshLocked(ctx context.Context) error {
	// Open may have failed to subscribe
	if err := a.subscribeInboxLocked(ctx); err != nil {
		return err
	}
	if err := a.loadInboxLocked(ctx); err != nil {
		return err
	}
	if a.selected == "" {
		return nil
	}
	return a.reloadSelectedLocked(ctx)
}

func (a *AdminInbox) reloadSelectedLocked(ctx context.Context) error {
	conv, msgs, err := a.loadConversationLocked(ctx, a.selected)
	if err != nil {
		return a.fail(err)
	}
	a.timeline.Reset(msgs)
	a.markReadLocked(ctx)
	a.pushDetailLocked(conv)
	return nil
}

// Close releases every subscription.
func (a *AdminInbox) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.leaveLocked()
	if a.inboxHandle != "" {
		a.events.Unsubscribe(a.inboxHandle)
		a.inboxHandle = ""
	}
	a.closed = true
}

// Inbox returns the current conversation rows.
func (a *AdminInbox) Inbox() []domain.ConversationSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inbox.Items()
}

// Selected returns the selected conversation id and its timeline.
func (a *AdminInbox) Selected() (string, []domain.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected, a.timeline.Messages()
}

func (a *AdminInbox) onInboxEvent(ev domain.ChangeEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	switch ev.Kind {
	case domain.EventConversationChanged:
		if ev.Conversation != nil {
			a.inbox.Upsert(*ev.Conversation)
		}
		// the selected conversation is read on arrival, do not count it
		if ev.Message != nil && ev.ConversationID != a.selected {
			a.inbox.CountMessage(*ev.Message)
		}
		if ev.ReadRole == domain.RoleVisitor {
			a.inbox.ResetUnread(ev.ConversationID)
		}
		if row, ok := a.inbox.Get(ev.ConversationID); ok {
			a.sink.Push(pushed(domain.NotifyConversation, map[string]interface{}{"conversation": row}))
		}

	case domain.EventConversationDeleted:
		a.removeLocked(ev.ConversationID)

	case domain.EventResync:
		_ = a.loadInboxLocked(context.Background())
	}
}

func (a *AdminInbox) onDetailEvent(ev domain.ChangeEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || ev.ConversationID != a.selected {
		return
	}

	switch ev.Kind {
	case domain.EventMessageInserted:
		if ev.Message == nil {
			return
		}
		added := a.timeline.Merge(*ev.Message)
		if len(added) == 0 {
			return
		}
		a.sink.Push(pushed(domain.NotifyMessage, map[string]interface{}{"message": *ev.Message}))
		if ev.Message.SenderRole == domain.RoleVisitor {
			a.markReadLocked(context.Background())
		}

	case domain.EventMessagesRead:
		if a.timeline.ApplyRead(ev.ReadRole) > 0 {
			a.sink.Push(pushed(domain.NotifyMessagesRead, map[string]interface{}{
				"conversation_id": ev.ConversationID,
				"read_role":       ev.ReadRole,
			}))
		}

	case domain.EventResync:
		_ = a.reloadSelectedLocked(context.Background())
	}
}

func (a *AdminInbox) fail(err error) error {
	if !domain.IsValidation(err) {
		logger.Log.Debug("admin action failed", zap.String("admin", a.admin.ID), zap.Error(err))
	}
	a.sink.Push(noticeResponse(err))
	return err
}
