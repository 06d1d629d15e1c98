package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed run can keep a slot locked.
const DefaultTTL = 10 * time.Minute

// releaseScript deletes the key only if this run still owns it, so an
// expired lock reclaimed by another run is never released from here.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker implements Locker with SET NX PX on a shared Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (r *RedisLocker) Acquire(ctx context.Context, slot time.Time) (func(), bool, error) {
	key := "poolsched:run:" + slotKey(slot)
	owner := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, owner, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = r.client.Eval(ctx, releaseScript, []string{key}, owner).Err()
	}
	return release, true, nil
}
