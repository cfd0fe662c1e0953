package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"support_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthApp(auth *token.Authority) *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTMiddleware(auth), func(c *fiber.Ctx) error {
		id, _ := MemberID(c)
		return c.SendString(id)
	})
	app.Get("/admin", JWTMiddleware(auth), AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestJWTMiddleware(t *testing.T) {
	auth := token.NewAuthority("secret", "test", time.Hour)
	app := newAuthApp(auth)
	tok, err := auth.GenerateJWT("member-1", token.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{"Header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			r.Header.Set("Authorization", "Bearer "+tok)
			return r
		}, http.StatusOK},
		{"Query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/me?auth="+tok, nil)
		}, http.StatusOK},
		{"Cookie", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			r.AddCookie(&http.Cookie{Name: CookieToken, Value: tok})
			return r
		}, http.StatusOK},
		{"Missing", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/me", nil)
		}, http.StatusUnauthorized},
		{"Invalid", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			r.Header.Set("Authorization", "Bearer not.a.jwt")
			return r
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(tt.req(), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestJWTMiddleware_OtherSecret(t *testing.T) {
	app := newAuthApp(token.NewAuthority("secret", "test", time.Hour))
	forged, err := token.NewAuthority("other", "test", time.Hour).GenerateJWT("member-1", token.RoleAdmin)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me?auth="+forged, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminOnly(t *testing.T) {
	auth := token.NewAuthority("secret", "test", time.Hour)
	app := newAuthApp(auth)

	guest, err := auth.GenerateJWT("member-2", token.RoleGuest)
	require.NoError(t, err)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin?auth="+guest, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin, err := auth.GenerateJWT("member-1", token.RoleAdmin)
	require.NoError(t, err)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin?auth="+admin, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionCookie(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		store := NewSessionCookie(c, true)
		current, err := store.Load()
		if err != nil {
			return err
		}
		if current == "" {
			return store.Save("vs_minted")
		}
		return c.SendString(current)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "vs_minted", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	// session scoped, no expiry
	assert.True(t, c.Expires.IsZero())
	assert.Zero(t, c.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "vs_existing"})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Empty(t, resp.Cookies())
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("Bearer "))
}
