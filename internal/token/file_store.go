package token

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/example/poolside-scheduler/internal/crypto"
)

// FileStore keeps the session record in a single JSON file, replaced
// atomically on every save so readers never see a torn write. With a sealer
// the record is encrypted at rest.
type FileStore struct {
	path   string
	sealer *crypto.Sealer

	mu sync.Mutex
}

func NewFileStore(path string, sealer *crypto.Sealer) *FileStore {
	return &FileStore{path: path, sealer: sealer}
}

func (f *FileStore) Load(_ context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read token file: %w", err)
	}
	if f.sealer != nil {
		if b, err = f.sealer.Open(b); err != nil {
			return Session{}, fmt.Errorf("unseal token file: %w", err)
		}
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("decode token file: %w", err)
	}
	return s, nil
}

func (f *FileStore) Save(_ context.Context, s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if f.sealer != nil {
		if b, err = f.sealer.Seal(b); err != nil {
			return fmt.Errorf("seal token record: %w", err)
		}
	}
	if err := renameio.WriteFile(f.path, b, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
