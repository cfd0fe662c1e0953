package app

import (
	"strings"

	"support_chat_service/internal/chat/domain"
	"support_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// TokenStore persists the visitor session token for the lifetime of the browser session.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
}

// IdentityResolver hands out visitor session tokens.
type IdentityResolver struct {
	now domain.Clock
}

// NewIdentityResolver create IdentityResolver
func NewIdentityResolver(now domain.Clock) *IdentityResolver {
	if now == nil {
		now = domain.Now
	}
	return &IdentityResolver{now: now}
}

// Resolve returns the stored token, or mints and persists a new one.
// It never fails: when storage is unusable the token is ephemeral and persisted is false.
func (r *IdentityResolver) Resolve(store TokenStore) (token string, persisted bool) {
	existing, err := store.Load()
	if err == nil && validSessionToken(existing) {
		return existing, true
	}
	if err != nil {
		logger.Log.Warn("session token load failed, minting a new one", zap.Error(err))
	}

	token = domain.NewSessionToken(r.now())
	if err := store.Save(token); err != nil {
		logger.Log.Warn("session token not persisted", zap.Error(err))
		return token, false
	}
	return token, true
}

func validSessionToken(token string) bool {
	return strings.HasPrefix(token, domain.SessionTokenPrefix) && len(token) > len(domain.SessionTokenPrefix)
}
