package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/example/poolside-scheduler/internal/booking"
)

// FileRecorder keeps the most recent outcome in a JSON file, replaced
// atomically. One record is enough: the guard only ever asks about the
// current target slot, and the status surface only shows the latest run.
type FileRecorder struct {
	path string

	mu sync.Mutex
}

func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{path: path}
}

func (f *FileRecorder) Record(_ context.Context, o booking.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(f.path, b, 0o644); err != nil {
		return fmt.Errorf("write outcome file: %w", err)
	}
	return nil
}

func (f *FileRecorder) Last(_ context.Context) (booking.Outcome, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return booking.Outcome{}, false, nil
	}
	if err != nil {
		return booking.Outcome{}, false, fmt.Errorf("read outcome file: %w", err)
	}
	var o booking.Outcome
	if err := json.Unmarshal(b, &o); err != nil {
		return booking.Outcome{}, false, fmt.Errorf("decode outcome file: %w", err)
	}
	return o, true, nil
}

func (f *FileRecorder) LastConfirmed(ctx context.Context, slot time.Time) (booking.Outcome, bool, error) {
	o, found, err := f.Last(ctx)
	if err != nil || !found {
		return booking.Outcome{}, false, err
	}
	if o.Status == booking.StatusConfirmed && o.Slot.Equal(slot) {
		return o, true, nil
	}
	return booking.Outcome{}, false, nil
}
