package app

import (
	"context"
	"strings"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/internal/chat/repository"
	errprocess "support_chat_service/pkg/err"
	"support_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// ConversationUseCase owns the conversation lifecycle: resume, start, close, delete.
type ConversationUseCase struct {
	convRepo repository.ConversationRepository
	messages *MessageUseCase
	feed     repository.ChangeFeed
	greeting string
	now      domain.Clock
}

// NewConversationUseCase init conversation use case.
// greeting may contain {name}, it is replaced with the visitor name.
func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	messages *MessageUseCase,
	feed repository.ChangeFeed,
	greeting string,
	now domain.Clock,
) *ConversationUseCase {
	if now == nil {
		now = domain.Now
	}
	return &ConversationUseCase{
		convRepo: convRepo,
		messages: messages,
		feed:     feed,
		greeting: greeting,
		now:      now,
	}
}

// Resume returns the visitor's conversation, or nil when there is none.
func (uc *ConversationUseCase) Resume(ctx context.Context, sessionToken string) (*domain.Conversation, error) {
	if strings.TrimSpace(sessionToken) == "" {
		return nil, domain.ErrEmptySessionToken
	}
	conv, err := uc.convRepo.FindBySessionID(ctx, sessionToken)
	if err != nil {
		return nil, errprocess.Wrap("resume conversation", err)
	}
	return conv, nil
}

// Start opens a new conversation and seeds the admin greeting.
func (uc *ConversationUseCase) Start(ctx context.Context, sessionToken, visitorName string) (*domain.Conversation, error) {
	visitorName = strings.TrimSpace(visitorName)
	if visitorName == "" {
		return nil, domain.ErrEmptyVisitorName
	}
	if strings.TrimSpace(sessionToken) == "" {
		return nil, domain.ErrEmptySessionToken
	}

	now := uc.now()
	conv := &domain.Conversation{
		ID:               domain.NewID(now),
		VisitorSessionID: sessionToken,
		VisitorName:      visitorName,
		Status:           domain.StatusOpen,
		LastMessageAt:    now,
		CreatedAt:        now,
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		return nil, errprocess.Wrap("create conversation", err)
	}

	// 預設的問候訊息, a conversation without it is rolled back
	greet, err := uc.messages.Send(ctx, conv.ID, domain.RoleAdmin, uc.greetingFor(visitorName))
	if err != nil {
		uc.rollbackStart(ctx, conv.ID)
		return nil, errprocess.Wrap("seed greeting", err, zap.String("conversation_id", conv.ID))
	}
	conv.LastMessageAt = greet.CreatedAt

	uc.publish(ctx, domain.ChangeEvent{
		Kind:           domain.EventConversationChanged,
		ConversationID: conv.ID,
		Conversation:   conv,
		OccurredAt:     now,
	})
	logger.Log.Info("conversation started", zap.String("conversation_id", conv.ID))
	return conv, nil
}

// rollbackStart removes a conversation whose greeting was never stored.
// It runs even when ctx is already done.
func (uc *ConversationUseCase) rollbackStart(ctx context.Context, id string) {
	if _, err := uc.convRepo.Delete(context.WithoutCancel(ctx), id); err != nil {
		logger.Log.Error("rollback conversation failed", zap.String("conversation_id", id), zap.Error(err))
	}
}

func (uc *ConversationUseCase) greetingFor(name string) string {
	g := strings.TrimSpace(uc.greeting)
	if g == "" {
		g = "Hi {name}, how can we help?"
	}
	return strings.ReplaceAll(g, "{name}", name)
}

// Close moves the conversation to closed. Closing a closed conversation is a no-op.
func (uc *ConversationUseCase) Close(ctx context.Context, actor domain.Participant, id string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	conv, err := uc.convRepo.FindByID(ctx, id)
	if err != nil {
		return errprocess.Wrap("find conversation", err, zap.String("conversation_id", id))
	}
	if conv == nil {
		return domain.ErrConversationNotFound
	}
	if conv.IsClosed() {
		return nil
	}

	changed, err := uc.convRepo.UpdateStatus(ctx, id, domain.StatusOpen, domain.StatusClosed)
	if err != nil {
		return errprocess.Wrap("close conversation", err, zap.String("conversation_id", id))
	}
	// another admin won the race, nothing left to announce
	if !changed {
		return nil
	}

	conv.Status = domain.StatusClosed
	uc.publish(ctx, domain.ChangeEvent{
		Kind:           domain.EventConversationChanged,
		ConversationID: id,
		Conversation:   conv,
		OccurredAt:     uc.now(),
	})
	logger.Log.Info("conversation closed", zap.String("conversation_id", id), zap.String("admin", actor.ID))
	return nil
}

// Delete removes the conversation and every message in it.
func (uc *ConversationUseCase) Delete(ctx context.Context, actor domain.Participant, id string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	deleted, err := uc.convRepo.Delete(ctx, id)
	if err != nil {
		return errprocess.Wrap("delete conversation", err, zap.String("conversation_id", id))
	}
	if !deleted {
		return domain.ErrConversationNotFound
	}

	uc.publish(ctx, domain.ChangeEvent{
		Kind:           domain.EventConversationDeleted,
		ConversationID: id,
		OccurredAt:     uc.now(),
	})
	logger.Log.Info("conversation deleted", zap.String("conversation_id", id), zap.String("admin", actor.ID))
	return nil
}

// Get returns one conversation.
func (uc *ConversationUseCase) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := uc.convRepo.FindByID(ctx, id)
	if err != nil {
		return nil, errprocess.Wrap("find conversation", err, zap.String("conversation_id", id))
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

// Inbox returns every conversation, most recently active first, with unread visitor counts.
func (uc *ConversationUseCase) Inbox(ctx context.Context) ([]domain.ConversationSummary, error) {
	list, err := uc.convRepo.ListSummaries(ctx)
	if err != nil {
		return nil, errprocess.Wrap("list conversations", err)
	}
	domain.SortInbox(list)
	return list, nil
}

// lifecycle events go to the inbox and to the conversation's own channel
func (uc *ConversationUseCase) publish(ctx context.Context, ev domain.ChangeEvent) {
	if uc.feed == nil {
		return
	}
	channels := []string{domain.InboxChannel, domain.ConversationChannel(ev.ConversationID)}
	for _, ch := range channels {
		if err := uc.feed.Publish(ctx, ch, ev); err != nil {
			logger.Log.Warn("publish change event failed",
				zap.String("channel", ch),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err),
			)
		}
	}
}
