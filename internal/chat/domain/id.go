package domain

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionTokenPrefix marks visitor session tokens.
const SessionTokenPrefix = "vs_"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// Clock returns the current time.
type Clock func() time.Time

// Now is the default clock, UTC at the millisecond precision every store keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewID returns a ULID for t. Ids from one process are strictly increasing within a millisecond.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NewSessionToken returns a visitor session token, a timestamp followed by a random suffix.
func NewSessionToken(t time.Time) string {
	return SessionTokenPrefix + NewID(t)
}
