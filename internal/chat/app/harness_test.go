package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/internal/chat/repository"
	"support_chat_service/pkg/database"

	"github.com/stretchr/testify/require"
)

// chatHarness wires the real use cases on an in-memory sqlite store and the local feed.
type chatHarness struct {
	feed          *repository.LocalFeed
	subscriber    *Subscriber
	conversations *ConversationUseCase
	messages      *MessageUseCase
}

func newChatHarness(t *testing.T, opts ...MessageOption) *chatHarness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", domain.NewID(time.Now()))
	db, err := database.NewSQLiteDB(dsn)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	feed := repository.NewLocalFeed()
	convRepo := repository.NewSQLConversationRepository(db)
	msgRepo := repository.NewSQLMessageRepository(db)
	messages := NewMessageUseCase(convRepo, msgRepo, feed, opts...)

	h := &chatHarness{
		feed:          feed,
		subscriber:    NewSubscriber(feed, 64),
		messages:      messages,
		conversations: NewConversationUseCase(convRepo, messages, feed, "Hi {name}, how can we help?", nil),
	}
	t.Cleanup(func() {
		h.subscriber.Close()
		_ = feed.Close()
		_ = database.CloseSQL(db)
	})
	return h
}

func (h *chatHarness) visitor(sessionID string, limiter SendLimiter) (*VisitorWidget, *recordingSink) {
	sink := &recordingSink{}
	w := NewVisitorWidget(sessionID, VisitorDeps{
		Conversations: h.conversations,
		Messages:      h.messages,
		Events:        h.subscriber,
		Limiter:       limiter,
		StoreTimeout:  time.Second,
	}, sink)
	return w, sink
}

func (h *chatHarness) admin(memberID string) (*AdminInbox, *recordingSink) {
	sink := &recordingSink{}
	a := NewAdminInbox(domain.Admin(memberID), AdminDeps{
		Conversations: h.conversations,
		Messages:      h.messages,
		Events:        h.subscriber,
		StoreTimeout:  time.Second,
	}, sink)
	return a, sink
}

// recordingSink keeps every pushed response.
type recordingSink struct {
	mu    sync.Mutex
	resps []domain.WSResponse
}

func (s *recordingSink) Push(resp domain.WSResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resps = append(s.resps, resp)
}

func (s *recordingSink) all(action domain.Action) []domain.WSResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WSResponse
	for _, r := range s.resps {
		if r.Action == string(action) {
			out = append(out, r)
		}
	}
	return out
}

func (s *recordingSink) count(action domain.Action) int {
	return len(s.all(action))
}

func (s *recordingSink) last(action domain.Action) (domain.WSResponse, bool) {
	list := s.all(action)
	if len(list) == 0 {
		return domain.WSResponse{}, false
	}
	return list[len(list)-1], true
}

func (s *recordingSink) notices() []string {
	var out []string
	for _, r := range s.all(domain.Notice) {
		out = append(out, r.Error)
	}
	return out
}

type fixedLimiter struct {
	allow bool
	err   error
}

func (l fixedLimiter) Allow(context.Context, string) (bool, error) { return l.allow, l.err }

func messageBodies(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}
