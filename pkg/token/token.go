package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleType set caller role
type RoleType string

const (
	// RoleAdmin is the support agent role
	RoleAdmin RoleType = "admin"
	// RoleGuest is any other authenticated caller
	RoleGuest RoleType = "guest"
)

// Claims structure for custom claims in JWT
type Claims struct {
	MemberID string `json:"user_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims carry the admin role.
func (c *Claims) IsAdmin() bool {
	return RoleType(c.Role) == RoleAdmin
}

// ErrInvalidToken is returned for unparsable, expired or badly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Authority signs and verifies HS256 tokens.
type Authority struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewAuthority create Authority
func NewAuthority(secret, issuer string, ttl time.Duration) *Authority {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	return &Authority{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// GenerateJWT generates a JWT token
func (a *Authority) GenerateJWT(memberID string, role RoleType) (string, error) {
	now := time.Now()
	claims := Claims{
		MemberID: memberID,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    a.issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseJWT parses a JWT and extracts the Claims. Tokens from another issuer are rejected.
func (a *Authority) ParseJWT(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
