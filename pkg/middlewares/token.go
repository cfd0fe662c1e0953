package middlewares

import (
	"strings"

	t_token "support_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
)

// ClaimsParser verifies a token string, *token.Authority implements it.
type ClaimsParser interface {
	ParseJWT(tokenStr string) (*t_token.Claims, error)
}

// JWTMiddleware validates the JWT from the Authorization header, the auth query or the auth cookie
func JWTMiddleware(parser ClaimsParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := bearerToken(c.Get(fiber.HeaderAuthorization))

		// 如果 header 沒有 token，則嘗試從查詢參數獲取, browsers cannot set headers on websocket upgrades
		if tokenStr == "" {
			tokenStr = c.Query(QueryToken)
		}

		// 如果查詢參數中沒有 token，則嘗試從 Cookie 中獲取
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}

		// 如果仍然沒有 token，則返回未授權錯誤
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := parser.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenRole, claims.Role)
		return c.Next()
	}
}

// AdminOnly rejects callers whose token role is not admin, run it after JWTMiddleware
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(TokenRole).(string)
		if t_token.RoleType(role) != t_token.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin only",
			})
		}
		return c.Next()
	}
}

// MemberID returns the member id JWTMiddleware stored on c.
func MemberID(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(TokenMemberID).(string)
	return id, ok && id != ""
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
