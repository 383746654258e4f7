// Package redisx holds the Redis-backed leader lock used to keep a single
// outbox publisher active across replicas. Losing the lock (or running
// without Redis) only degrades ordering, never correctness: the consumer-side
// inbox deduplicates whatever racing publishers produce.
package redisx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

type Lock struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	token string
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewLock(rdb *redis.Client, key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lock{rdb: rdb, key: key, ttl: ttl}
}

// TryAcquire attempts to take the lock without blocking. The token guards
// Release against deleting a lock that has expired and been re-acquired.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	token := newToken()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err()
}

func newToken() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
