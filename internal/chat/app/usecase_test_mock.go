package app

import (
	"context"
	"time"

	"support_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// Create moke create conversation
func (m *MockConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// FindByID moke find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindBySessionID moke find conversation by visitor session
func (m *MockConversationRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateStatus moke conditional status update
func (m *MockConversationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ConversationStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

// TouchLastMessageAt moke bump lastMessageAt
func (m *MockConversationRepository) TouchLastMessageAt(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// Delete moke delete conversation
func (m *MockConversationRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// ListSummaries moke inbox rows
func (m *MockConversationRepository) ListSummaries(ctx context.Context) ([]domain.ConversationSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ConversationSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert moke insert msg
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// ListByConversation moke list msg
func (m *MockMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead moke mark read
func (m *MockMessageRepository) MarkRead(ctx context.Context, conversationID string, senderRole domain.SenderRole) (int64, error) {
	args := m.Called(ctx, conversationID, senderRole)
	return args.Get(0).(int64), args.Error(1)
}

// MockChangeFeed Mock ChangeFeed
type MockChangeFeed struct {
	mock.Mock
}

// Publish moke publish
func (m *MockChangeFeed) Publish(ctx context.Context, channel string, event domain.ChangeEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

// Subscribe moke subscribe
func (m *MockChangeFeed) Subscribe(ctx context.Context, channel string, handler func(domain.ChangeEvent)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// Close moke close
func (m *MockChangeFeed) Close() error {
	args := m.Called()
	return args.Error(0)
}
