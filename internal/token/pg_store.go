package token

import (
	"context"

	"github.com/example/poolside-scheduler/internal/db"
)

// PGStore keeps the single session record in a one-row table. The upsert is
// one statement, so readers always see either the old or the new record.
type PGStore struct {
	db *db.DB
}

func NewPGStore(d *db.DB) *PGStore { return &PGStore{db: d} }

func (p *PGStore) Load(ctx context.Context) (Session, error) {
	var s Session
	err := p.db.QueryRow(ctx, `
SELECT access_token, refresh_token, issued_at, expires_at
FROM session_tokens WHERE id=1`).
		Scan(&s.AccessToken, &s.RefreshToken, &s.IssuedAt, &s.ExpiresAt)
	if db.IsNotFound(err) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, db.WrapNotFound(err)
	}
	return s, nil
}

func (p *PGStore) Save(ctx context.Context, s Session) error {
	return p.db.Exec(ctx, `
INSERT INTO session_tokens(id, access_token, refresh_token, issued_at, expires_at, updated_at)
VALUES (1, $1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE
SET access_token=EXCLUDED.access_token,
    refresh_token=EXCLUDED.refresh_token,
    issued_at=EXCLUDED.issued_at,
    expires_at=EXCLUDED.expires_at,
    updated_at=now()`,
		s.AccessToken, s.RefreshToken, s.IssuedAt, s.ExpiresAt)
}
