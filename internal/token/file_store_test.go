package token

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/poolside-scheduler/internal/crypto"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, nil)
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	want := Session{
		AccessToken:  "acc",
		RefreshToken: "ref",
		IssuedAt:     time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC),
		ExpiresAt:    time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreSealed(t *testing.T) {
	sealer, err := crypto.NewSealer(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, sealer)
	ctx := context.Background()

	want := Session{AccessToken: "secret-token", RefreshToken: "secret-refresh"}
	require.NoError(t, store.Save(ctx, want))

	// The file on disk must not leak the plaintext tokens.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A store without the key cannot read the record.
	_, err = NewFileStore(path, nil).Load(ctx)
	assert.Error(t, err)
}

func TestSessionUsable(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	margin := 5 * time.Minute

	s := Session{AccessToken: "t", ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.Usable(now, margin))

	s.ExpiresAt = now.Add(4 * time.Minute)
	assert.False(t, s.Usable(now, margin), "inside the safety margin counts as unusable")

	s.ExpiresAt = now.Add(time.Hour)
	s.AccessToken = ""
	assert.False(t, s.Usable(now, margin))
}

func TestSessionTTL(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, s.TTL(now))
	assert.Equal(t, time.Duration(0), s.TTL(now.Add(2*time.Minute)))
}
