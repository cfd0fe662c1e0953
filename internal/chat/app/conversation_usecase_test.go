package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"support_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type conversationMocks struct {
	convRepo *MockConversationRepository
	msgRepo  *MockMessageRepository
	feed     *MockChangeFeed
	uc       *ConversationUseCase
}

func newConversationMocks(greeting string) conversationMocks {
	m := conversationMocks{
		convRepo: new(MockConversationRepository),
		msgRepo:  new(MockMessageRepository),
		feed:     new(MockChangeFeed),
	}
	messages := NewMessageUseCase(m.convRepo, m.msgRepo, m.feed, WithMessageClock(fixedClock(t0)))
	m.uc = NewConversationUseCase(m.convRepo, messages, m.feed, greeting, fixedClock(t0))
	return m
}

func TestConversationUseCase_Resume(t *testing.T) {
	ctx := context.Background()
	m := newConversationMocks("")
	latest := openConversation("c2")
	m.convRepo.On("FindBySessionID", ctx, "vs_a").Return(latest, nil)
	m.convRepo.On("FindBySessionID", ctx, "vs_new").Return(nil, nil)

	conv, err := m.uc.Resume(ctx, "vs_a")
	require.NoError(t, err)
	assert.Equal(t, "c2", conv.ID)

	conv, err = m.uc.Resume(ctx, "vs_new")
	require.NoError(t, err)
	assert.Nil(t, conv)

	_, err = m.uc.Resume(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrEmptySessionToken)
}

// 測試 Start 會建立對話並送出問候訊息
func TestConversationUseCase_Start(t *testing.T) {
	ctx := context.Background()
	m := newConversationMocks("Welcome {name}")

	var created *domain.Conversation
	m.convRepo.On("Create", ctx, mock.MatchedBy(func(c *domain.Conversation) bool {
		return c.VisitorName == "Ada" && c.VisitorSessionID == "vs_a" && c.Status == domain.StatusOpen
	})).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.Conversation)
	}).Return(nil)
	m.convRepo.On("FindByID", ctx, mock.Anything).Return(openConversation("seeded"), nil)
	m.msgRepo.On("Insert", ctx, mock.MatchedBy(func(msg *domain.Message) bool {
		return msg.Body == "Welcome Ada" && msg.SenderRole == domain.RoleAdmin
	})).Return(nil)
	m.convRepo.On("TouchLastMessageAt", ctx, mock.Anything, t0).Return(nil)
	m.feed.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	conv, err := m.uc.Start(ctx, "vs_a", "  Ada ")

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, created.ID, conv.ID)
	assert.Equal(t, "Ada", conv.VisitorName)
	assert.Equal(t, t0, conv.LastMessageAt)
	// inserted + inbox change for the greeting, then created on both channels
	m.feed.AssertNumberOfCalls(t, "Publish", 4)
	m.feed.AssertCalled(t, "Publish", ctx, domain.InboxChannel, eventKind(domain.EventConversationChanged))
	m.feed.AssertCalled(t, "Publish", ctx, domain.ConversationChannel(conv.ID), eventKind(domain.EventMessageInserted))
	m.msgRepo.AssertExpectations(t)
}

func TestConversationUseCase_Start_Validation(t *testing.T) {
	ctx := context.Background()
	m := newConversationMocks("")

	_, err := m.uc.Start(ctx, "vs_a", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyVisitorName)

	_, err = m.uc.Start(ctx, "", "Ada")
	assert.ErrorIs(t, err, domain.ErrEmptySessionToken)

	m.convRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConversationUseCase_Start_CreateFails(t *testing.T) {
	ctx := context.Background()
	m := newConversationMocks("")
	dbErr := errors.New("duplicate key")
	m.convRepo.On("Create", ctx, mock.Anything).Return(dbErr)

	conv, err := m.uc.Start(ctx, "vs_a", "Ada")
	assert.Nil(t, conv)
	assert.ErrorIs(t, err, dbErr)
	m.feed.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

// 問候訊息寫入失敗時不可留下空對話
func TestConversationUseCase_Start_GreetingFails(t *testing.T) {
	ctx := context.Background()
	m := newConversationMocks("")
	insertErr := errors.New("insert boom")

	var created *domain.Conversation
	m.convRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.Conversation)
	}).Return(nil)
	m.convRepo.On("FindByID", ctx, mock.Anything).Return(openConversation("seeded"), nil)
	m.msgRepo.On("Insert", ctx, mock.Anything).Return(insertErr)
	m.convRepo.On("Delete", mock.Anything, mock.Anything).Return(true, nil)

	conv, err := m.uc.Start(ctx, "vs_a", "Ada")

	assert.Nil(t, conv)
	assert.ErrorIs(t, err, insertErr)
	require.NotNil(t, created)
	m.convRepo.AssertCalled(t, "Delete", mock.Anything, created.ID)
	m.feed.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationUseCase_GreetingDefault(t *testing.T) {
	uc := NewConversationUseCase(nil, nil, nil, "", nil)
	assert.Equal(t, "Hi Ada, how can we help?", uc.greetingFor("Ada"))

	uc = NewConversationUseCase(nil, nil, nil, "Hello {name}, {name}!", nil)
	assert.Equal(t, "Hello Bo, Bo!", uc.greetingFor("Bo"))
}

func TestConversationUseCase_Close(t *testing.T) {
	ctx := context.Background()
	admin := domain.Admin("agent-1")

	t.Run("Forbidden", func(t *testing.T) {
		m := newConversationMocks("")
		err := m.uc.Close(ctx, domain.Visitor("vs_a"), "c1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		m.convRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		m := newConversationMocks("")
		m.convRepo.On("FindByID", ctx, "c1").Return(nil, nil)
		assert.ErrorIs(t, m.uc.Close(ctx, admin, "c1"), domain.ErrConversationNotFound)
	})

	t.Run("Closes", func(t *testing.T) {
		m := newConversationMocks("")
		m.convRepo.On("FindByID", ctx, "c1").Return(openConversation("c1"), nil)
		m.convRepo.On("UpdateStatus", ctx, "c1", domain.StatusOpen, domain.StatusClosed).Return(true, nil)
		closedEvent := mock.MatchedBy(func(ev domain.ChangeEvent) bool {
			return ev.Kind == domain.EventConversationChanged && ev.Conversation != nil && ev.Conversation.IsClosed()
		})
		m.feed.On("Publish", ctx, domain.InboxChannel, closedEvent).Return(nil)
		m.feed.On("Publish", ctx, domain.ConversationChannel("c1"), closedEvent).Return(nil)

		require.NoError(t, m.uc.Close(ctx, admin, "c1"))
		m.feed.AssertExpectations(t)
	})

	t.Run("AlreadyClosed", func(t *testing.T) {
		m := newConversationMocks("")
		c := openConversation("c1")
		c.Status = domain.StatusClosed
		m.convRepo.On("FindByID", ctx, "c1").Return(c, nil)

		require.NoError(t, m.uc.Close(ctx, admin, "c1"))
		m.convRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.feed.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("LostRace", func(t *testing.T) {
		m := newConversationMocks("")
		m.convRepo.On("FindByID", ctx, "c1").Return(openConversation("c1"), nil)
		m.convRepo.On("UpdateStatus", ctx, "c1", domain.StatusOpen, domain.StatusClosed).Return(false, nil)

		require.NoError(t, m.uc.Close(ctx, admin, "c1"))
		m.feed.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestConversationUseCase_Delete(t *testing.T) {
	ctx := context.Background()
	admin := domain.Admin("agent-1")

	m := newConversationMocks("")
	m.convRepo.On("Delete", ctx, "c1").Return(true, nil)
	m.convRepo.On("Delete", ctx, "gone").Return(false, nil)
	m.feed.On("Publish", ctx, mock.Anything, eventKind(domain.EventConversationDeleted)).Return(nil)

	require.NoError(t, m.uc.Delete(ctx, admin, "c1"))
	m.feed.AssertNumberOfCalls(t, "Publish", 2)

	assert.ErrorIs(t, m.uc.Delete(ctx, admin, "gone"), domain.ErrConversationNotFound)
	assert.ErrorIs(t, m.uc.Delete(ctx, domain.Visitor("vs_a"), "c1"), domain.ErrForbidden)
}

func TestConversationUseCase_GetAndInbox(t *testing.T) {
	ctx := context.Background()
	m := newConversationMocks("")
	m.convRepo.On("FindByID", ctx, "c1").Return(openConversation("c1"), nil)
	m.convRepo.On("FindByID", ctx, "nope").Return(nil, nil)

	older := openConversation("old")
	older.LastMessageAt = t0.Add(-time.Hour)
	newer := openConversation("new")
	newer.LastMessageAt = t0
	m.convRepo.On("ListSummaries", ctx).Return([]domain.ConversationSummary{
		{Conversation: *older},
		{Conversation: *newer, UnreadCount: 3},
	}, nil)

	conv, err := m.uc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", conv.ID)

	_, err = m.uc.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	list, err := m.uc.Inbox(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, 3, list[0].UnreadCount)
}
