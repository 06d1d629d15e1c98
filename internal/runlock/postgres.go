package runlock

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/example/poolside-scheduler/internal/db"
)

// PGLocker implements Locker with Postgres advisory locks. The lock lives on
// a dedicated pool connection for the duration of the run and disappears
// with the session if the process dies, so there is nothing to expire.
type PGLocker struct {
	db *db.DB
}

func NewPGLocker(d *db.DB) *PGLocker { return &PGLocker{db: d} }

func (p *PGLocker) Acquire(ctx context.Context, slot time.Time) (func(), bool, error) {
	key := advisoryKey(slot)

	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var got bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&got); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !got {
		conn.Release()
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, key)
		conn.Release()
	}
	return release, true, nil
}

// advisoryKey maps a slot to the int64 key space pg advisory locks use.
func advisoryKey(slot time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("poolsched:run:" + slotKey(slot)))
	return int64(h.Sum64())
}
