package app

import (
	"context"
	"time"

	"support_chat_service/internal/chat/domain"
	errprocess "support_chat_service/pkg/err"
	"support_chat_service/pkg/logger"

	"go.uber.org/zap"
)

const (
	defaultStoreTimeout = 5 * time.Second
	genericNotice       = "something went wrong, please try again"
)

// Sink receives every response a controller produces. Push must not block for long.
type Sink interface {
	Push(resp domain.WSResponse)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(resp domain.WSResponse)

// Push calls f.
func (f SinkFunc) Push(resp domain.WSResponse) { f(resp) }

// SendLimiter throttles visitor sends per session.
type SendLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type nopLimiter struct{}

func (nopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// NopLimiter allows everything.
func NopLimiter() SendLimiter { return nopLimiter{} }

// ConversationService is the lifecycle surface controllers and handlers call.
type ConversationService interface {
	Resume(ctx context.Context, sessionToken string) (*domain.Conversation, error)
	Start(ctx context.Context, sessionToken, visitorName string) (*domain.Conversation, error)
	Close(ctx context.Context, actor domain.Participant, id string) error
	Delete(ctx context.Context, actor domain.Participant, id string) error
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	Inbox(ctx context.Context) ([]domain.ConversationSummary, error)
}

// MessageService is the message surface controllers and handlers call.
type MessageService interface {
	Send(ctx context.Context, conversationID string, role domain.SenderRole, body string) (*domain.Message, error)
	MarkRead(ctx context.Context, conversationID string, forRole domain.SenderRole) (int64, error)
	List(ctx context.Context, conversationID string) ([]domain.Message, error)
}

// allowSend applies limiter, failing open when the limiter itself errors.
func allowSend(ctx context.Context, limiter SendLimiter, key string) bool {
	ok, err := limiter.Allow(ctx, key)
	if err != nil {
		logger.Log.Warn("rate limiter unavailable, allowing send", zap.Error(err))
		return true
	}
	return ok
}

func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func noticeResponse(err error) domain.WSResponse {
	return domain.WSResponse{
		Action:  string(domain.Notice),
		Success: false,
		Error:   errprocess.Public(err, genericNotice),
	}
}

func pushed(action domain.Action, payload map[string]interface{}) domain.WSResponse {
	return domain.WSResponse{Action: string(action), Success: true, Payload: payload}
}
