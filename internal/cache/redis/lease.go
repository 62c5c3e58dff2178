package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// Both scripts act only when the key still holds the caller's token, so a
// holder whose lease expired can never touch its successor's lease.
const (
	releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`
	extendLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`
)

// LeaseManager implements domain.LeaseManager with SET NX PX and token-checked
// Lua scripts.
type LeaseManager struct {
	rdb     *redis.Client
	release *redis.Script
	extend  *redis.Script
}

// NewLeaseManager creates a LeaseManager backed by the given Client.
func NewLeaseManager(c *Client) *LeaseManager {
	return &LeaseManager{
		rdb:     c.Underlying(),
		release: redis.NewScript(releaseLua),
		extend:  redis.NewScript(extendLua),
	}
}

func leaseKey(key string) string {
	return "lease:" + key
}

// Acquire takes the lease for key. It returns domain.ErrLockHeld when another
// process holds it.
func (m *LeaseManager) Acquire(ctx context.Context, key string, ttl time.Duration) (domain.Lease, error) {
	l := &lease{m: m, key: leaseKey(key), token: uuid.NewString(), ttl: ttl}
	ok, err := m.rdb.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("lease %s: %w", key, domain.ErrLockHeld)
	}
	return l, nil
}

type lease struct {
	m     *LeaseManager
	key   string
	token string
	ttl   time.Duration
}

// Refresh pushes the expiry out by the lease TTL. It returns
// domain.ErrLockHeld when the lease was lost.
func (l *lease) Refresh(ctx context.Context) error {
	n, err := l.m.extend.Run(ctx, l.m.rdb, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis: refresh lease %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("lease %s lost: %w", l.key, domain.ErrLockHeld)
	}
	return nil
}

// Release deletes the lease if it is still ours.
func (l *lease) Release(ctx context.Context) error {
	if err := l.m.release.Run(ctx, l.m.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("redis: release lease %s: %w", l.key, err)
	}
	return nil
}

var _ domain.LeaseManager = (*LeaseManager)(nil)
