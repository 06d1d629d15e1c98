// Package runlock serializes booking runs. A run takes an exclusive lock
// keyed by its target slot before any venue attempt; a second invocation for
// the same slot observes the held lock and exits as a no-op.
package runlock

import (
	"context"
	"sync"
	"time"
)

// Locker hands out slot-scoped exclusive locks. ok is false when another run
// already holds the slot; release must be called on every exit path.
type Locker interface {
	Acquire(ctx context.Context, slot time.Time) (release func(), ok bool, err error)
}

// slotKey normalizes a slot to a stable lock key.
func slotKey(slot time.Time) string {
	return slot.UTC().Format(time.RFC3339)
}

// Local is an in-process Locker for single-instance deployments without
// Postgres or Redis. Cross-process exclusion then rests on the external
// trigger being serial.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) Acquire(_ context.Context, slot time.Time) (func(), bool, error) {
	key := slotKey(slot)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return nil, false, nil
	}
	l.held[key] = struct{}{}
	release := func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
	return release, true, nil
}
