// Package health tracks the control-loop heartbeat and alerts when it goes
// stale.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// DefaultStaleThreshold is how long a heartbeat may age before alerting.
const DefaultStaleThreshold = 5 * time.Minute

// Monitor records heartbeats for one bot.
type Monitor struct {
	name      string
	threshold time.Duration
	notifier  domain.Notifier
	metrics   domain.MetricsSink
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	last    time.Time
	alerted bool
}

// NewMonitor returns a Monitor. A non-positive threshold means
// DefaultStaleThreshold.
func NewMonitor(name string, threshold time.Duration, notifier domain.Notifier, metrics domain.MetricsSink, logger *slog.Logger) *Monitor {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	return &Monitor{
		name:      name,
		threshold: threshold,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "health"), slog.String("bot", name)),
		now:       time.Now,
	}
}

// Beat records a heartbeat. If the previous heartbeat had already gone stale
// (the loop stalled between iterations) an alert is sent before the new
// heartbeat is recorded.
func (m *Monitor) Beat(ctx context.Context) {
	now := m.now()

	m.mu.Lock()
	prev := m.last
	stale := !prev.IsZero() && now.Sub(prev) > m.threshold && !m.alerted
	m.last = now
	m.alerted = false
	m.mu.Unlock()

	m.metrics.Gauge("last_heartbeat", float64(now.Unix()))
	if stale {
		m.alert(ctx, now.Sub(prev))
	}
}

// LastHeartbeat returns the time of the most recent Beat.
func (m *Monitor) LastHeartbeat() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// IsStale reports whether the last heartbeat is older than threshold. Before
// the first Beat nothing is stale.
func (m *Monitor) IsStale(threshold time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.last.IsZero() && m.now().Sub(m.last) > threshold
}

// Stale is IsStale with the configured threshold.
func (m *Monitor) Stale() bool { return m.IsStale(m.threshold) }

// Check alerts once per stale episode and reports staleness.
func (m *Monitor) Check(ctx context.Context) bool {
	m.mu.Lock()
	age := m.now().Sub(m.last)
	stale := !m.last.IsZero() && age > m.threshold
	fire := stale && !m.alerted
	if fire {
		m.alerted = true
	}
	m.mu.Unlock()

	if fire {
		m.alert(ctx, age)
	}
	return stale
}

// Watch calls Check every interval until ctx is done.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = m.threshold / 5
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *Monitor) alert(ctx context.Context, age time.Duration) {
	m.logger.WarnContext(ctx, "heartbeat stale",
		slog.Duration("age", age),
		slog.Duration("threshold", m.threshold),
	)
	m.metrics.IncCounter("heartbeat_stale")
	m.notifier.SendAlert(ctx, fmt.Sprintf("%s heartbeat timeout: last beat %s ago", m.name, age.Round(time.Second)))
}
