// Package token holds the session-token model and its persistence.
package token

import (
	"context"
	"errors"
	"time"
)

// Session is an issued access token plus the refresh credential that will
// replace it. Sessions are immutable: a refresh produces a new Session, the
// old one is discarded.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Usable reports whether the token can still be presented to the remote:
// current time must stay below expiry minus the safety margin.
func (s Session) Usable(now time.Time, margin time.Duration) bool {
	return s.AccessToken != "" && now.Before(s.ExpiresAt.Add(-margin))
}

// TTL is the remaining lifetime at now, zero once expired.
func (s Session) TTL(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// ErrNoSession means no token has ever been stored; the operator has to
// complete the interactive login once.
var ErrNoSession = errors.New("no stored session")

// Store persists exactly one session record atomically, with
// exclusive-writer semantics: readers never observe a partial write.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
}
