package router

import (
	"support_chat_service/internal/chat/app"
	"support_chat_service/pkg/middlewares"

	// swagger docs
	_ "support_chat_service/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// Handlers everything RegisterRoutes mounts.
type Handlers struct {
	HTTP      *app.ChatHTTPHandler
	Websocket *app.ChatWebsocketHandler
	Identity  *app.IdentityResolver
	Auth      middlewares.ClaimsParser
	// SecureCookie sets the Secure flag on the visitor session cookie
	SecureCookie bool
}

// RegisterRoutes 注册 support chat 的路由
// @title Support Chat Service API
// @version 1.0
// @description Visitor widget and admin inbox of the support chat
// @host localhost:8080
// @BasePath /
func RegisterRoutes(r *fiber.App, h Handlers) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", app.ConnectCheck)

	session := VisitorSession(h.Identity, h.SecureCookie)
	admin := []fiber.Handler{middlewares.JWTMiddleware(h.Auth), middlewares.AdminOnly()}

	r.Post("/debug", append(admin, app.DebugLogFlag)...)

	visitor := r.Group("/api/visitor", session)
	visitor.Post("/session", h.HTTP.Session)
	visitor.Get("/conversation", h.HTTP.VisitorConversation)
	visitor.Post("/conversation", h.HTTP.StartChat)
	visitor.Get("/conversation/messages", h.HTTP.VisitorMessages)
	visitor.Post("/conversation/messages", h.HTTP.VisitorSend)

	adminRoutes := r.Group("/api/admin", admin...)
	adminRoutes.Get("/conversations", h.HTTP.Inbox)
	adminRoutes.Get("/conversations/:id/messages", h.HTTP.AdminMessages)
	adminRoutes.Post("/conversations/:id/messages", h.HTTP.AdminSend)
	adminRoutes.Post("/conversations/:id/close", h.HTTP.CloseConversation)
	adminRoutes.Delete("/conversations/:id", h.HTTP.DeleteConversation)

	ws := r.Group("/ws", upgradeOnly)
	ws.Get("/visitor", session, websocket.New(h.Websocket.HandleVisitor))
	ws.Get("/admin", append(admin, websocket.New(h.Websocket.HandleAdmin))...)
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// VisitorSession resolves the visitor session token into c.Locals(middlewares.SessionID)
func VisitorSession(identity *app.IdentityResolver, secure bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, _ := identity.Resolve(middlewares.NewSessionCookie(c, secure))
		c.Locals(middlewares.SessionID, token)
		return c.Next()
	}
}
