package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"support_chat_service/internal/chat/domain"
	errprocess "support_chat_service/pkg/err"
	"support_chat_service/pkg/logger"
	"support_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errUnknownAction = errprocess.NewPublic("unknown action", nil)

const writeWait = 10 * time.Second

// WSConfig tunes every websocket connection.
type WSConfig struct {
	OutboundBuffer int
	PingInterval   time.Duration
}

// ChatWebsocketHandler 可包含所有需要的 UseCase, one controller per connection
type ChatWebsocketHandler struct {
	conversations ConversationService
	messages      MessageService
	events        EventSource
	limiter       SendLimiter
	storeTimeout  time.Duration
	cfg           WSConfig
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	conversations ConversationService,
	messages MessageService,
	events EventSource,
	limiter SendLimiter,
	storeTimeout time.Duration,
	cfg WSConfig,
) *ChatWebsocketHandler {
	if cfg.OutboundBuffer <= 0 {
		cfg.OutboundBuffer = 64
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if limiter == nil {
		limiter = NopLimiter()
	}
	return &ChatWebsocketHandler{
		conversations: conversations,
		messages:      messages,
		events:        events,
		limiter:       limiter,
		storeTimeout:  storeTimeout,
		cfg:           cfg,
	}
}

// HandleVisitor 是 visitor WebSocket 連線的進入點, the session id is set by the session middleware
func (h *ChatWebsocketHandler) HandleVisitor(conn *websocket.Conn) {
	sessionID, _ := conn.Locals(middlewares.SessionID).(string)
	wc := h.newConn(conn, zap.String("session", sessionID))
	defer wc.shutdown()
	if sessionID == "" {
		wc.Push(noticeResponse(domain.ErrEmptySessionToken))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	widget := NewVisitorWidget(sessionID, VisitorDeps{
		Conversations: h.conversations,
		Messages:      h.messages,
		Events:        h.events,
		Limiter:       h.limiter,
		StoreTimeout:  h.storeTimeout,
	}, wc)
	defer widget.Close()

	_ = widget.Open(ctx)
	wc.readLoop(func(req domain.WSRequest) {
		switch domain.Action(req.Action) {
		case domain.StartChat:
			_ = widget.StartChat(ctx, req.Name)
		case domain.SendMessage:
			_ = widget.Send(ctx, req.Body)
		case domain.Refresh:
			_ = widget.Refresh(ctx)
		default:
			wc.Push(noticeResponse(errUnknownAction))
		}
	})
}

// HandleAdmin 是 admin WebSocket 連線的進入點, run behind JWTMiddleware and AdminOnly
func (h *ChatWebsocketHandler) HandleAdmin(conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	wc := h.newConn(conn, zap.String("admin", memberID))
	defer wc.shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbox := NewAdminInbox(domain.Admin(memberID), AdminDeps{
		Conversations: h.conversations,
		Messages:      h.messages,
		Events:        h.events,
		StoreTimeout:  h.storeTimeout,
	}, wc)
	defer inbox.Close()

	if err := inbox.Open(ctx); errors.Is(err, domain.ErrForbidden) {
		return
	}
	wc.readLoop(func(req domain.WSRequest) {
		switch domain.Action(req.Action) {
		case domain.SelectConversation:
			_ = inbox.Select(ctx, req.ConversationID)
		case domain.LeaveConversation:
			inbox.Leave()
			wc.Push(pushed(domain.LeaveConversation, nil))
		case domain.SendMessage:
			_ = inbox.Reply(ctx, req.Body)
		case domain.CloseConversation:
			_ = inbox.CloseConversation(ctx, req.ConversationID)
		case domain.DeleteConversation:
			_ = inbox.DeleteConversation(ctx, req.ConversationID)
		case domain.Refresh:
			_ = inbox.Refresh(ctx)
		default:
			wc.Push(noticeResponse(errUnknownAction))
		}
	})
}

// wsConn serialises writes: websocket.Conn allows one concurrent writer, so everything goes through out.
type wsConn struct {
	conn  *websocket.Conn
	log   *logger.LogInfo
	out   chan domain.WSResponse
	done  chan struct{}
	once  sync.Once
	pumps sync.WaitGroup
	ping  time.Duration
}

func (h *ChatWebsocketHandler) newConn(conn *websocket.Conn, field zap.Field) *wsConn {
	wc := &wsConn{
		conn: conn,
		log:  logger.Log.With(zap.String("conn_id", uuid.New().String()), field),
		out:  make(chan domain.WSResponse, h.cfg.OutboundBuffer),
		done: make(chan struct{}),
		ping: h.cfg.PingInterval,
	}

	//server發出ping之後client連線正常會回pong, extend the read deadline on every pong
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * wc.ping))
	})
	_ = conn.SetReadDeadline(time.Now().Add(2 * wc.ping))

	wc.pumps.Add(1)
	go wc.writePump()
	wc.log.Info("websocket open")
	return wc
}

// Push enqueues resp. A client too slow to drain its buffer is disconnected; it re-fetches on reconnect.
func (wc *wsConn) Push(resp domain.WSResponse) {
	select {
	case <-wc.done:
		return
	default:
	}
	select {
	case wc.out <- resp:
	case <-wc.done:
	default:
		wc.log.Warn("outbound buffer full, closing connection", zap.String("action", resp.Action))
		wc.stop()
	}
}

func (wc *wsConn) stop() {
	wc.once.Do(func() {
		close(wc.done)
		// unblock ReadMessage
		_ = wc.conn.SetReadDeadline(time.Now())
	})
}

// shutdown flushes what is queued, then closes the socket.
func (wc *wsConn) shutdown() {
	wc.stop()
	wc.pumps.Wait()
	_ = wc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = wc.conn.Close()
	wc.log.Info("websocket close")
}

func (wc *wsConn) writePump() {
	defer wc.pumps.Done()
	ticker := time.NewTicker(wc.ping)
	defer ticker.Stop()

	for {
		select {
		case resp := <-wc.out:
			if err := wc.write(resp); err != nil {
				wc.log.Warn("websocket write error", zap.Error(err))
				wc.stop()
				return
			}
		case <-ticker.C:
			// 定期發送 Ping
			if err := wc.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				wc.log.Warn("Ping error", zap.Error(err))
				wc.stop()
				return
			}
		case <-wc.done:
			for {
				select {
				case resp := <-wc.out:
					if err := wc.write(resp); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (wc *wsConn) write(resp domain.WSResponse) error {
	_ = wc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.conn.WriteJSON(resp)
}

// readLoop decodes text frames into requests until the peer goes away.
func (wc *wsConn) readLoop(dispatch func(req domain.WSRequest)) {
	for {
		// 1. 讀取前端訊息
		mt, message, err := wc.conn.ReadMessage()
		if err != nil {
			// 檢查是否為 Close 正常結束
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				wc.log.Info("Connection closed", zap.Error(err))
			} else {
				//直接斷線 1006
				wc.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		select {
		case <-wc.done:
			return
		default:
		}

		if mt != websocket.TextMessage {
			wc.Push(noticeResponse(errUnknownAction))
			continue
		}
		var req domain.WSRequest
		if err := json.Unmarshal(message, &req); err != nil {
			wc.log.Debug("json unmarshal error", zap.Error(err))
			wc.Push(noticeResponse(errUnknownAction))
			continue
		}
		dispatch(req)
	}
}
