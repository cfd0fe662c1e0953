package app

import (
	"context"
	"errors"
	"time"

	"support_chat_service/internal/chat/domain"
	errprocess "support_chat_service/pkg/err"
	"support_chat_service/pkg/logger"
	"support_chat_service/pkg/middlewares"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler 处理 support chat 的 REST 请求
type ChatHTTPHandler struct {
	conversations ConversationService
	messages      MessageService
	limiter       SendLimiter
	storeTimeout  time.Duration
	validate      *validator.Validate
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(conversations ConversationService, messages MessageService, limiter SendLimiter, storeTimeout time.Duration) *ChatHTTPHandler {
	if limiter == nil {
		limiter = NopLimiter()
	}
	return &ChatHTTPHandler{
		conversations: conversations,
		messages:      messages,
		limiter:       limiter,
		storeTimeout:  storeTimeout,
		validate:      validator.New(),
	}
}

// StartChatRequest body of POST /api/visitor/conversation
type StartChatRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

// SendMessageRequest body of the message POST routes
type SendMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// SessionResponse visitor session info
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// ConversationResponse one conversation with its messages
type ConversationResponse struct {
	Conversation domain.Conversation `json:"conversation"`
	Messages     []domain.Message    `json:"messages"`
}

// ErrorResponse error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// Session returns the visitor session token
// @Summary Visitor session
// @Description Resolves the visitor session cookie, minting one when missing
// @Tags Visitor
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/visitor/session [post]
func (h *ChatHTTPHandler) Session(c *fiber.Ctx) error {
	sessionID, ok := middlewares.VisitorSessionID(c)
	if !ok {
		return h.fail(c, domain.ErrEmptySessionToken)
	}
	return c.JSON(SessionResponse{SessionID: sessionID})
}

// VisitorConversation resume the visitor conversation
// @Summary Resume conversation
// @Description Returns the most recent conversation of the session with every message
// @Tags Visitor
// @Produce json
// @Success 200 {object} ConversationResponse
// @Failure 404 {object} ErrorResponse "no conversation yet"
// @Router /api/visitor/conversation [get]
func (h *ChatHTTPHandler) VisitorConversation(c *fiber.Ctx) error {
	ctx, cancel := storeContext(c.UserContext(), h.storeTimeout)
	defer cancel()

	conv, err := h.resume(ctx, c)
	if err != nil {
		return h.fail(c, err)
	}
	return h.conversationJSON(ctx, c, conv)
}

// StartChat start a new conversation
// @Summary Start conversation
// @Description Creates an open conversation and seeds the greeting
// @Tags Visitor
// @Accept json
// @Produce json
// @Param request body StartChatRequest true "visitor name"
// @Success 201 {object} ConversationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "a conversation is already open"
// @Router /api/visitor/conversation [post]
func (h *ChatHTTPHandler) StartChat(c *fiber.Ctx) error {
	var req StartChatRequest
	if err := h.parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	sessionID, ok := middlewares.VisitorSessionID(c)
	if !ok {
		return h.fail(c, domain.ErrEmptySessionToken)
	}

	ctx, cancel := storeContext(c.UserContext(), h.storeTimeout)
	defer cancel()

	existing, err := h.conversations.Resume(ctx, sessionID)
	if err != nil {
		return h.fail(c, err)
	}
	if existing != nil && !existing.IsClosed() {
		return h.fail(c, domain.ErrConversationExists)
	}

	conv, err := h.conversations.Start(ctx, sessionID, req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	c.Status(fiber.StatusCreated)
	return h.conversationJSON(ctx, c, conv)
}

// VisitorMessages list the visitor conversation messages
// @Summary Visitor messages
// @Tags Visitor
// @Produce json
// @Success 200 {array} domain.Message
// @Failure 404 {object} ErrorResponse
// @Router /api/visitor/conversation/messages [get]
func (h *ChatHTTPHandler) VisitorMessages(c *fiber.Ctx) error {
	ctx, cancel := storeContext(c.UserContext(), h.storeTimeout)
	defer cancel()

	conv, err := h.resume(ctx, c)
	if err != nil {
		return h.fail(c, err)
	}
	msgs, err := h.messages.List(ctx, conv.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(msgs)
}

// VisitorSend send a visitor message
// @Summary Visitor send
// @Tags Visitor
// @Accept json
// @Produce json
// @Param request body SendMessageRequest true "message"
// @Success 201 {object} domain.Message
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "conversation closed"
// @Failure 429 {object} ErrorResponse "rate limited"
// @Router /api/visitor/conversation/messages [post]
func (h *ChatHTTPHandler) VisitorSend(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := h.parse(c, &req); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := storeContext(c.UserContext(), h.storeTimeout)
	defer cancel()

	conv, err := h.resume(ctx, c)
	if err != nil {
		return h.fail(c, err)
	}
	if !allowSend(ctx, h.limiter, conv.VisitorSessionID) {
		return h.fail(c, domain.ErrRateLimited)
	}

	msg, err := h.messages.Send(ctx, conv.ID, domain.RoleVisitor, req.Body)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// Inbox list every conversation
// @Summary Admin inbox
// @Description Conversations by last activity with unread visitor counts
// @Tags Admin
// @Produce json
// @Param auth query string false "admin token"
// @Success 200 {array} domain.ConversationSummary
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/admin/conversations [get]
func (h *ChatHTTPHandler) Inbox(c *fiber.Ctx) error {
	ctx, cancel := storeContext(c.UserContext(), h.storeTimeout)
	defer cancel()

	list, err := h.conversations.Inbox(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

// AdminMessages open a conversation, marking visitor messages read
// @Summary Admin conversation messages
// @Tags Admin
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} ConversationResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/conversations/{id}/messages [get]
func (h *ChatHTTPHandler) AdminMessages(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx, cancel := storeContext(c.UserContext(), h.storeTimeout)
	defer cancel()

	conv, err := h.conversations.Get(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	if _, err := h.messages.MarkRead(ctx, id, domain.RoleAdmin); err != nil {
		logger.Log.Warn("mark read failed", zap.String("conversation_id", id), zap.Error(err))
	}
	return h.conversationJSON(ctx, c, conv)
}

// AdminSend reply as admin
// @Summary Admin reply
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Param request body SendMessageRequest true "message"
// @Success 201 {object} domain.Message
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/admin/conversations/{id}/messages [post]
func (h *ChatHTTPHandler) AdminSend(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := h.parse(c, &req); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := storeContext(c.UserContext(), h.storeTimeout)
	defer cancel()

	msg, err := h.messages.Send(ctx, c.Params("id"), domain.RoleAdmin, req.Body)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// CloseConversation close a conversation
// @Summary Close conversation
// @Tags Admin
// @Param id path string true "conversation id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/conversations/{id}/close [post]
func (h *ChatHTTPHandler) CloseConversation(c *fiber.Ctx) error {
	ctx, cancel := storeContext(c.UserContext(), h.storeTimeout)
	defer cancel()

	if err := h.conversations.Close(ctx, adminFrom(c), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteConversation delete a conversation with its messages
// @Summary Delete conversation
// @Tags Admin
// @Param id path string true "conversation id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/conversations/{id} [delete]
func (h *ChatHTTPHandler) DeleteConversation(c *fiber.Ctx) error {
	ctx, cancel := storeContext(c.UserContext(), h.storeTimeout)
	defer cancel()

	if err := h.conversations.Delete(ctx, adminFrom(c), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ChatHTTPHandler) resume(ctx context.Context, c *fiber.Ctx) (*domain.Conversation, error) {
	sessionID, ok := middlewares.VisitorSessionID(c)
	if !ok {
		return nil, domain.ErrEmptySessionToken
	}
	conv, err := h.conversations.Resume(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domain.ErrNoConversation
	}
	return conv, nil
}

func (h *ChatHTTPHandler) conversationJSON(ctx context.Context, c *fiber.Ctx, conv *domain.Conversation) error {
	msgs, err := h.messages.List(ctx, conv.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ConversationResponse{Conversation: *conv, Messages: msgs})
}

var errInvalidRequest = errprocess.NewPublic("invalid request", nil)

func (h *ChatHTTPHandler) parse(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errInvalidRequest
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errprocess.NewPublic(verrs[0].Field()+" is "+verrs[0].Tag(), errInvalidRequest)
		}
		return errInvalidRequest
	}
	return nil
}

func (h *ChatHTTPHandler) fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Log.Errorf("chat request failed", err, zap.String("path", c.Path()))
	}
	return c.Status(status).JSON(ErrorResponse{Error: errprocess.Public(err, genericNotice)})
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptySessionToken):
		return fiber.StatusUnauthorized
	case domain.IsValidation(err), errors.Is(err, errInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrConversationNotFound), errors.Is(err, domain.ErrNoConversation):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConversationClosed), errors.Is(err, domain.ErrConversationExists):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func adminFrom(c *fiber.Ctx) domain.Participant {
	id, _ := middlewares.MemberID(c)
	return domain.Admin(id)
}
