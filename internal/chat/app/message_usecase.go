package app

import (
	"context"
	"errors"
	"strings"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/internal/chat/repository"
	errprocess "support_chat_service/pkg/err"
	"support_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// MessageUseCase 負責處理聊天訊息
type MessageUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	feed     repository.ChangeFeed
	now      domain.Clock

	enforceClosed bool
}

// MessageOption tunes a MessageUseCase.
type MessageOption func(*MessageUseCase)

// WithMessageClock overrides the clock used for CreatedAt.
func WithMessageClock(now domain.Clock) MessageOption {
	return func(uc *MessageUseCase) { uc.now = now }
}

// WithEnforceClosed toggles rejecting sends to closed conversations.
func WithEnforceClosed(on bool) MessageOption {
	return func(uc *MessageUseCase) { uc.enforceClosed = on }
}

// NewMessageUseCase init message use case
func NewMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	feed repository.ChangeFeed,
	opts ...MessageOption,
) *MessageUseCase {
	uc := &MessageUseCase{
		convRepo:      convRepo,
		msgRepo:       msgRepo,
		feed:          feed,
		now:           domain.Now,
		enforceClosed: true,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Send append a message to the conversation.
// The lastMessageAt bump is a second write; its failure is logged and the send still succeeds.
func (uc *MessageUseCase) Send(ctx context.Context, conversationID string, role domain.SenderRole, body string) (*domain.Message, error) {
	// 1. 驗證, never reaches the store
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyBody
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	// 2. 檢查對話是否存在
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, errprocess.Wrap("find conversation", err, zap.String("conversation_id", conversationID))
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}
	if uc.enforceClosed && conv.IsClosed() {
		return nil, domain.ErrConversationClosed
	}

	// 3. 寫入訊息
	now := uc.now()
	msg := &domain.Message{
		ID:             domain.NewID(now),
		ConversationID: conversationID,
		SenderRole:     role,
		Body:           body,
		CreatedAt:      now,
	}
	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		// deleted after the lookup above
		if errors.Is(err, domain.ErrConversationNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, errprocess.Wrap("insert message", err, zap.String("conversation_id", conversationID))
	}

	// 4. 更新 lastMessageAt
	if err := uc.convRepo.TouchLastMessageAt(ctx, conversationID, now); err != nil {
		logger.Log.Warn("lastMessageAt not advanced",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
	if conv.LastMessageAt.Before(now) {
		conv.LastMessageAt = now
	}

	// 5. pubSub 同步給訂閱者
	uc.publish(ctx, domain.ConversationChannel(conversationID), domain.ChangeEvent{
		Kind:           domain.EventMessageInserted,
		ConversationID: conversationID,
		Message:        msg,
		OccurredAt:     now,
	})
	uc.publish(ctx, domain.InboxChannel, domain.ChangeEvent{
		Kind:           domain.EventConversationChanged,
		ConversationID: conversationID,
		Conversation:   conv,
		Message:        msg,
		OccurredAt:     now,
	})

	return msg, nil
}

// MarkRead - 已讀, flips every message authored by the other side of forRole.
func (uc *MessageUseCase) MarkRead(ctx context.Context, conversationID string, forRole domain.SenderRole) (int64, error) {
	if !forRole.Valid() {
		return 0, domain.ErrInvalidRole
	}
	readRole := forRole.Opposite()

	n, err := uc.msgRepo.MarkRead(ctx, conversationID, readRole)
	if err != nil {
		return 0, errprocess.Wrap("mark read", err, zap.String("conversation_id", conversationID))
	}
	if n > 0 {
		ev := domain.ChangeEvent{
			Kind:           domain.EventMessagesRead,
			ConversationID: conversationID,
			ReadRole:       readRole,
			OccurredAt:     uc.now(),
		}
		uc.publish(ctx, domain.ConversationChannel(conversationID), ev)
		uc.publish(ctx, domain.InboxChannel, domain.ChangeEvent{
			Kind:           domain.EventConversationChanged,
			ConversationID: conversationID,
			ReadRole:       readRole,
			OccurredAt:     ev.OccurredAt,
		})
	}
	return n, nil
}

// List returns every message of the conversation in display order.
func (uc *MessageUseCase) List(ctx context.Context, conversationID string) ([]domain.Message, error) {
	msgs, err := uc.msgRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, errprocess.Wrap("list messages", err, zap.String("conversation_id", conversationID))
	}
	domain.SortMessages(msgs)
	return msgs, nil
}

func (uc *MessageUseCase) publish(ctx context.Context, channel string, ev domain.ChangeEvent) {
	if uc.feed == nil {
		return
	}
	if err := uc.feed.Publish(ctx, channel, ev); err != nil {
		logger.Log.Warn("publish change event failed",
			zap.String("channel", channel),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
	}
}
