package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"solana-token-selector/internal/job"
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// DefaultKeyPrefix namespaces lock keys.
const DefaultKeyPrefix = "token-selector:lock:"

const releaseTimeout = 5 * time.Second

// Locker implements job.Locker with SET NX PX and a token-checked release.
type Locker struct {
	rdb     *redis.Client
	release *redis.Script
	prefix  string
}

// NewLocker creates a Locker on the given client. An empty prefix uses DefaultKeyPrefix.
func NewLocker(c *Client, prefix string) *Locker {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Locker{
		rdb:     c.rdb,
		release: redis.NewScript(releaseScript),
		prefix:  prefix,
	}
}

// Acquire takes key for at most ttl. Returns job.ErrLockHeld if another
// holder owns it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	k := l.prefix + key

	ok, err := l.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, job.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled at shutdown.
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			_ = l.release.Run(ctx, l.rdb, []string{k}, token).Err()
		})
	}, nil
}

var _ job.Locker = (*Locker)(nil)
