package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/pkg/database"
	"support_chat_service/pkg/logger"
	testtool "support_chat_service/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// feedRecorder collects delivered events per subscriber.
type feedRecorder struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (r *feedRecorder) handle(ev domain.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *feedRecorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		ids = append(ids, ev.ConversationID)
	}
	return ids
}

// checkBrokerFeed runs the routing and cancel checks shared by every broker driver.
func checkBrokerFeed(t *testing.T, feed ChangeFeed) {
	ctx := context.Background()

	t.Run("RoutesByChannel", func(t *testing.T) {
		convA, convB := domain.NewID(time.Now()), domain.NewID(time.Now())

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		inbox, first, second := &feedRecorder{}, &feedRecorder{}, &feedRecorder{}
		require.NoError(t, feed.Subscribe(subCtx, domain.InboxChannel, inbox.handle))
		require.NoError(t, feed.Subscribe(subCtx, domain.ConversationChannel(convA), first.handle))
		// 同一個 channel 的第二個訂閱有自己的 queue
		require.NoError(t, feed.Subscribe(subCtx, domain.ConversationChannel(convA), second.handle))

		msg := &domain.Message{ID: domain.NewID(time.Now()), ConversationID: convA, SenderRole: domain.RoleVisitor, Body: "hi"}
		require.NoError(t, feed.Publish(ctx, domain.ConversationChannel(convA), domain.ChangeEvent{
			Kind: domain.EventMessageInserted, ConversationID: convA, Message: msg, OccurredAt: domain.Now(),
		}))
		require.NoError(t, feed.Publish(ctx, domain.ConversationChannel(convB), domain.ChangeEvent{
			Kind: domain.EventMessagesRead, ConversationID: convB, ReadRole: domain.RoleAdmin, OccurredAt: domain.Now(),
		}))
		require.NoError(t, feed.Publish(ctx, domain.InboxChannel, domain.ChangeEvent{
			Kind: domain.EventConversationDeleted, ConversationID: convB, OccurredAt: domain.Now(),
		}))

		assert.Eventually(t, func() bool {
			return len(first.ids()) == 1 && len(second.ids()) == 1 && len(inbox.ids()) == 1
		}, 5*time.Second, 20*time.Millisecond)

		// nothing else shows up afterwards
		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, []string{convA}, first.ids())
		assert.Equal(t, []string{convA}, second.ids())
		assert.Equal(t, []string{convB}, inbox.ids())

		first.mu.Lock()
		require.NotNil(t, first.events[0].Message)
		assert.Equal(t, "hi", first.events[0].Message.Body)
		first.mu.Unlock()
	})

	t.Run("CancelEndsSubscription", func(t *testing.T) {
		conv := domain.NewID(time.Now())
		channel := domain.ConversationChannel(conv)

		subCtx, cancel := context.WithCancel(ctx)
		rec := &feedRecorder{}
		require.NoError(t, feed.Subscribe(subCtx, channel, rec.handle))

		ev := domain.ChangeEvent{Kind: domain.EventConversationChanged, ConversationID: conv, OccurredAt: domain.Now()}
		require.NoError(t, feed.Publish(ctx, channel, ev))
		assert.Eventually(t, func() bool { return len(rec.ids()) == 1 }, 5*time.Second, 20*time.Millisecond)

		cancel()
		// 等待 broker 端移除訂閱
		time.Sleep(500 * time.Millisecond)
		require.NoError(t, feed.Publish(ctx, channel, ev))
		assert.Never(t, func() bool { return len(rec.ids()) > 1 }, time.Second, 50*time.Millisecond)
	})
}

// **RabbitMQ 容器上的 change feed 測試**
func TestAMQPFeed_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skip container test in short mode")
	}
	logger.SetNewNop()
	ctx := context.Background()

	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(time.Minute),
	})
	require.NoError(t, err, "❌ Failed to start RabbitMQ container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port),
		RetryCount:    10,
		RetryInterval: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	feed, err := NewAMQPFeed(conn, "support_chat.test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = feed.Close() })

	checkBrokerFeed(t, feed)
}

// **NATS 容器上的 change feed 測試**
func TestNATSFeed_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skip container test in short mode")
	}
	logger.SetNewNop()
	ctx := context.Background()

	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "nats:2.10",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForLog("Server is ready"),
	})
	require.NoError(t, err, "❌ Failed to start NATS container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	nc, err := database.NewNATSConn(database.Connection{
		ConnectStr:    fmt.Sprintf("nats://%s:%s", host, port),
		RetryCount:    10,
		RetryInterval: time.Second,
	})
	require.NoError(t, err)
	feed := NewNATSFeed(nc)
	t.Cleanup(func() { _ = feed.Close() })

	checkBrokerFeed(t, feed)
}
