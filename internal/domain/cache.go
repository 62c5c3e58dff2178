package domain

import (
	"context"
	"time"
)

// Lease is a held single-instance lock that must be refreshed before its
// TTL lapses.
type Lease interface {
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

// LeaseManager hands out exclusive leases keyed by name.
type LeaseManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// PositionCache mirrors ledger positions to a shared store.
type PositionCache interface {
	SetPositions(ctx context.Context, bot string, positions []Position) error
	GetPosition(ctx context.Context, bot, instrument string) (Position, error)
}

// Channel names used for order events.
const (
	ChannelOrders = "ch:orders"
	ChannelBot    = "ch:bot"
)

// EventBus is a pub/sub bus with an append-only history stream.
type EventBus interface {
	EventPublisher
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
