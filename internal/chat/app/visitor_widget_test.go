package app

import (
	"context"
	"errors"
	"testing"

	"support_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitorWidget_OpenWithoutConversation(t *testing.T) {
	h := newChatHarness(t)
	w, sink := h.visitor("vs_new", nil)
	defer w.Close()

	require.NoError(t, w.Open(context.Background()))
	assert.Equal(t, 1, sink.count(domain.NameRequired))
	assert.Nil(t, w.Conversation())
	assert.Zero(t, h.subscriber.Active())
}

// Scenario A: a new visitor starts a chat and sees the greeting
func TestVisitorWidget_StartChat(t *testing.T) {
	ctx := context.Background()
	h := newChatHarness(t)
	w, sink := h.visitor("vs_karim", nil)
	defer w.Close()

	require.NoError(t, w.Open(ctx))
	require.NoError(t, w.StartChat(ctx, "  Karim "))

	conv := w.Conversation()
	require.NotNil(t, conv)
	assert.Equal(t, domain.StatusOpen, conv.Status)
	assert.Equal(t, "Karim", conv.VisitorName)

	msgs, err := h.messages.List(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleAdmin, msgs[0].SenderRole)
	assert.Equal(t, "Hi Karim, how can we help?", msgs[0].Body)

	snap, ok := sink.last(domain.ConversationSnapshot)
	require.True(t, ok)
	assert.Len(t, snap.Payload["messages"], 1)
	assert.Equal(t, 1, h.subscriber.Active())

	// a second start while open is refused
	err = w.StartChat(ctx, "Karim")
	assert.ErrorIs(t, err, domain.ErrConversationExists)
}

func TestVisitorWidget_StartChat_EmptyName(t *testing.T) {
	h := newChatHarness(t)
	w, sink := h.visitor("vs_a", nil)
	defer w.Close()

	err := w.StartChat(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyVisitorName)
	assert.Equal(t, []string{"please enter your name to start the chat"}, sink.notices())

	conv, err := h.conversations.Resume(context.Background(), "vs_a")
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestVisitorWidget_Send(t *testing.T) {
	ctx := context.Background()
	h := newChatHarness(t)
	w, sink := h.visitor("vs_a", nil)
	defer w.Close()
	require.NoError(t, w.StartChat(ctx, "Ada"))

	require.NoError(t, w.Send(ctx, " Is this available? "))

	ack, ok := sink.last(domain.SendMessage)
	require.True(t, ok)
	assert.True(t, ack.Success)
	assert.NotEmpty(t, ack.Payload["message_id"])

	// the feed delivers the same message again, it is shown once
	assert.Eventually(t, func() bool { return len(w.Messages()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"Hi Ada, how can we help?", "Is this available?"}, messageBodies(w.Messages()))
	assert.Equal(t, 1, sink.count(domain.NotifyMessage))
}

func TestVisitorWidget_Send_Rejected(t *testing.T) {
	ctx := context.Background()
	h := newChatHarness(t)

	t.Run("BeforeStart", func(t *testing.T) {
		w, _ := h.visitor("vs_none", nil)
		defer w.Close()
		assert.ErrorIs(t, w.Send(ctx, "hello"), domain.ErrNoConversation)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		w, sink := h.visitor("vs_empty", nil)
		defer w.Close()
		require.NoError(t, w.StartChat(ctx, "Ada"))
		assert.ErrorIs(t, w.Send(ctx, "  \n "), domain.ErrEmptyBody)
		assert.Len(t, w.Messages(), 1)
		assert.Equal(t, "message cannot be empty", sink.notices()[0])
	})

	t.Run("RateLimited", func(t *testing.T) {
		w, sink := h.visitor("vs_fast", fixedLimiter{allow: false})
		defer w.Close()
		require.NoError(t, w.StartChat(ctx, "Ada"))
		assert.ErrorIs(t, w.Send(ctx, "spam"), domain.ErrRateLimited)
		assert.Zero(t, sink.count(domain.SendMessage))

		msgs, err := h.messages.List(ctx, w.Conversation().ID)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})

	t.Run("LimiterDown", func(t *testing.T) {
		w, sink := h.visitor("vs_down", fixedLimiter{err: errors.New("redis down")})
		defer w.Close()
		require.NoError(t, w.StartChat(ctx, "Ada"))
		require.NoError(t, w.Send(ctx, "still works"))
		assert.Equal(t, 1, sink.count(domain.SendMessage))
	})
}

func TestVisitorWidget_ResumeAcrossTabs(t *testing.T) {
	ctx := context.Background()
	h := newChatHarness(t)
	first, _ := h.visitor("vs_tabs", nil)
	defer first.Close()
	require.NoError(t, first.StartChat(ctx, "Ada"))
	require.NoError(t, first.Send(ctx, "one"))

	second, sink := h.visitor("vs_tabs", nil)
	defer second.Close()
	require.NoError(t, second.Open(ctx))
	assert.Equal(t, first.Conversation().ID, second.Conversation().ID)
	assert.Len(t, second.Messages(), 2)
	assert.Zero(t, sink.count(domain.NameRequired))

	// live delivery between the two tabs
	require.NoError(t, first.Send(ctx, "two"))
	assert.Eventually(t, func() bool { return len(second.Messages()) == 3 }, waitFor, tick)
}

// Scenario C: a closed conversation is still resumed, and sending is gated
func TestVisitorWidget_ClosedConversation(t *testing.T) {
	ctx := context.Background()
	h := newChatHarness(t)
	w, sink := h.visitor("vs_c", nil)
	defer w.Close()
	require.NoError(t, w.StartChat(ctx, "Ada"))
	id := w.Conversation().ID

	require.NoError(t, h.conversations.Close(ctx, domain.Admin("agent"), id))
	assert.Eventually(t, func() bool { return w.Conversation().IsClosed() }, waitFor, tick)
	assert.GreaterOrEqual(t, sink.count(domain.NotifyConversation), 1)
	assert.ErrorIs(t, w.Send(ctx, "hello?"), domain.ErrConversationClosed)

	// page reload
	reloaded, _ := h.visitor("vs_c", nil)
	defer reloaded.Close()
	require.NoError(t, reloaded.Open(ctx))
	require.NotNil(t, reloaded.Conversation())
	assert.Equal(t, id, reloaded.Conversation().ID)
	assert.Equal(t, domain.StatusClosed, reloaded.Conversation().Status)
	assert.ErrorIs(t, reloaded.Send(ctx, "hello?"), domain.ErrConversationClosed)

	msgs, err := h.messages.List(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	// a fresh conversation may follow the closed one
	require.NoError(t, reloaded.StartChat(ctx, "Ada"))
	assert.NotEqual(t, id, reloaded.Conversation().ID)
}

// a widget that missed the close still learns it from the store
func TestVisitorWidget_StoreRejectsClosed(t *testing.T) {
	ctx := context.Background()
	h := newChatHarness(t)
	w, _ := h.visitor("vs_stale", nil)
	defer w.Close()
	require.NoError(t, w.StartChat(ctx, "Ada"))
	id := w.Conversation().ID

	// drop live updates so the widget stays stale
	h.subscriber.Close()
	require.NoError(t, h.conversations.Close(ctx, domain.Admin("agent"), id))

	assert.ErrorIs(t, w.Send(ctx, "hi"), domain.ErrConversationClosed)
	assert.True(t, w.Conversation().IsClosed())
}

func TestVisitorWidget_ConversationDeleted(t *testing.T) {
	ctx := context.Background()
	h := newChatHarness(t)
	w, sink := h.visitor("vs_d", nil)
	defer w.Close()
	require.NoError(t, w.StartChat(ctx, "Ada"))
	id := w.Conversation().ID

	require.NoError(t, h.conversations.Delete(ctx, domain.Admin("agent"), id))

	assert.Eventually(t, func() bool { return sink.count(domain.NotifyConversationGone) == 1 }, waitFor, tick)
	assert.Nil(t, w.Conversation())
	assert.Empty(t, w.Messages())
	assert.Equal(t, 1, sink.count(domain.NameRequired))
	assert.Zero(t, h.subscriber.Active())
}

func TestVisitorWidget_Refresh(t *testing.T) {
	ctx := context.Background()
	h := newChatHarness(t)
	w, sink := h.visitor("vs_r", nil)
	require.NoError(t, w.StartChat(ctx, "Ada"))

	_, err := h.messages.Send(ctx, w.Conversation().ID, domain.RoleAdmin, "are you there?")
	require.NoError(t, err)
	require.NoError(t, w.Refresh(ctx))
	assert.Len(t, w.Messages(), 2)
	assert.Equal(t, 2, sink.count(domain.ConversationSnapshot))

	w.Close()
	assert.Zero(t, h.subscriber.Active())
	assert.NoError(t, w.Refresh(ctx))
}
