package domain

import (
	"context"
	"time"
)

// Signer signs exchange actions with a key bound at construction.
type Signer interface {
	SignAction(action OrderAction, nonce uint64, isMainnet bool) (SignedAction, error)
}

// ExchangeClient posts signed actions. Transport-level failures (timeouts,
// resets, gateway errors) wrap ErrTransport so callers can retry them.
type ExchangeClient interface {
	SubmitOrder(ctx context.Context, action SignedAction) (ExchangeResponse, error)
}

// Persistence records orders for a single bot process.
type Persistence interface {
	Connect(ctx context.Context) error
	Close()
	LogOrder(ctx context.Context, rec OrderRecord) error
}

// OrderLister is implemented by persistence backends that can read orders
// back for the ops API and the run archiver.
type OrderLister interface {
	ListRecent(ctx context.Context, limit int) ([]OrderRecord, error)
	ListSince(ctx context.Context, bot string, since time.Time) ([]OrderRecord, error)
}

// Notifier delivers operator notifications. Both methods are best-effort:
// failures are logged by the implementation and never returned.
type Notifier interface {
	SendNotification(ctx context.Context, title, message string)
	SendAlert(ctx context.Context, message string)
}

// MetricsSink receives counters and gauges by name.
type MetricsSink interface {
	IncCounter(name string)
	Gauge(name string, value float64)
}

// Flusher is implemented by metrics sinks that buffer values.
type Flusher interface {
	Flush(ctx context.Context) error
}

// EventPublisher fans order lifecycle events out to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
