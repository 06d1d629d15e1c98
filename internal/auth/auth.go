// Package auth owns the session-token lifecycle: it hands out a currently
// valid token, refreshing proactively inside the safety margin, and hides
// refresh races from callers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/example/poolside-scheduler/internal/booking"
	"github.com/example/poolside-scheduler/internal/metrics"
	"github.com/example/poolside-scheduler/internal/token"
)

// RefreshClient is the identity-service call the manager depends on.
type RefreshClient interface {
	Refresh(ctx context.Context, refreshToken string) (token.Session, error)
}

type Manager struct {
	store  token.Store
	client RefreshClient
	margin time.Duration

	// newBackoff builds the retry policy for network-level refresh
	// failures. Overridable in tests.
	newBackoff func() backoff.BackOff
	now        func() time.Time

	mu sync.Mutex
}

func NewManager(store token.Store, client RefreshClient, margin time.Duration) *Manager {
	if margin <= 0 {
		margin = 5 * time.Minute
	}
	return &Manager{
		store:  store,
		client: client,
		margin: margin,
		newBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 15 * time.Second
			return b
		},
		now: time.Now,
	}
}

// ValidToken returns a session that is usable now. The stored token is
// reused while it stays outside the safety margin of expiry; otherwise a
// refresh runs, the replacement is persisted exactly once, and the new
// session is returned. A rejected refresh surfaces as *booking.AuthError.
func (m *Manager) ValidToken(ctx context.Context) (token.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Load(ctx)
	if errors.Is(err, token.ErrNoSession) {
		return token.Session{}, &booking.AuthError{Cause: fmt.Errorf("no stored session; complete the interactive login once: %w", err)}
	}
	if err != nil {
		return token.Session{}, &booking.AuthError{Cause: fmt.Errorf("load session: %w", err)}
	}
	if s.Usable(m.now(), m.margin) {
		return s, nil
	}
	return m.refreshLocked(ctx, s)
}

// ForceRefresh discards the current access token and refreshes regardless of
// its remaining lifetime. Used when the remote rejects a token mid-run and
// by the operator endpoint.
func (m *Manager) ForceRefresh(ctx context.Context) (token.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, token.ErrNoSession) {
			return token.Session{}, &booking.AuthError{Cause: err}
		}
		return token.Session{}, &booking.AuthError{Cause: fmt.Errorf("load session: %w", err)}
	}
	return m.refreshLocked(ctx, s)
}

// Peek returns the stored session without refreshing. Status reporting only.
func (m *Manager) Peek(ctx context.Context) (token.Session, error) {
	return m.store.Load(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context, old token.Session) (token.Session, error) {
	if old.RefreshToken == "" {
		return token.Session{}, &booking.AuthError{Cause: errors.New("stored session has no refresh token")}
	}

	var fresh token.Session
	op := func() error {
		s, err := m.client.Refresh(ctx, old.RefreshToken)
		if err != nil {
			var te *booking.TransientError
			if errors.As(err, &te) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		fresh = s
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(m.newBackoff(), ctx)); err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		var ae *booking.AuthError
		if errors.As(err, &ae) {
			return token.Session{}, ae
		}
		return token.Session{}, &booking.AuthError{Cause: fmt.Errorf("token refresh: %w", err)}
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()

	if err := m.store.Save(ctx, fresh); err != nil {
		return token.Session{}, &booking.AuthError{Cause: fmt.Errorf("persist refreshed session: %w", err)}
	}
	return fresh, nil
}
