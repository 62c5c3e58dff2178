package crypto

import (
	"sync"
	"time"
)

// NonceSource hands out millisecond-timestamp nonces that strictly increase
// even when called several times within the same millisecond.
type NonceSource struct {
	mu   sync.Mutex
	last uint64
	now  func() time.Time
}

// NewNonceSource returns a NonceSource backed by the wall clock.
func NewNonceSource() *NonceSource {
	return &NonceSource{now: time.Now}
}

// Next returns a nonce greater than every nonce returned before it.
func (n *NonceSource) Next() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	ts := uint64(n.now().UnixMilli())
	if ts <= n.last {
		ts = n.last + 1
	}
	n.last = ts
	return ts
}
