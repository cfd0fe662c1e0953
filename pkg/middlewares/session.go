package middlewares

import (
	"github.com/gofiber/fiber/v2"
)

const (
	// SessionCookieName visitor session cookie
	SessionCookieName = "support_session"
	// SessionID set c.locals name of the resolved visitor session token
	SessionID = "SessionID"
)

// SessionCookie keeps the visitor session token in a session scoped cookie.
type SessionCookie struct {
	c      *fiber.Ctx
	secure bool
}

// NewSessionCookie wraps c, secure adds the Secure flag.
func NewSessionCookie(c *fiber.Ctx, secure bool) *SessionCookie {
	return &SessionCookie{c: c, secure: secure}
}

// Load reads the token from the request, empty when the cookie is absent.
func (s *SessionCookie) Load() (string, error) {
	return s.c.Cookies(SessionCookieName), nil
}

// Save sets the cookie without Expires so it lives as long as the browser session.
func (s *SessionCookie) Save(token string) error {
	s.c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// VisitorSessionID returns the session token stored on c.
func VisitorSessionID(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(SessionID).(string)
	return id, ok && id != ""
}
