package metrics

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// Snapshot is a point-in-time copy of a Collector.
type Snapshot struct {
	Name     string             `json:"name"`
	Counters map[string]int64   `json:"counters"`
	Gauges   map[string]float64 `json:"gauges"`
	Uptime   time.Duration      `json:"uptime"`
}

// Collector keeps counters and gauges in memory. Flush writes a snapshot to
// the log.
type Collector struct {
	name    string
	started time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
}

// NewCollector returns an empty Collector for one bot.
func NewCollector(name string, logger *slog.Logger) *Collector {
	return &Collector{
		name:     name,
		started:  time.Now(),
		logger:   logger.With(slog.String("component", "metrics"), slog.String("bot", name)),
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

// IncCounter increments the named counter by one.
func (c *Collector) IncCounter(name string) {
	c.mu.Lock()
	c.counters[name]++
	c.mu.Unlock()
}

// Gauge sets the named gauge.
func (c *Collector) Gauge(name string, value float64) {
	c.mu.Lock()
	c.gauges[name] = value
	c.mu.Unlock()
}

// Counter returns the current value of a counter.
func (c *Collector) Counter(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// Snapshot copies the current state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Name:     c.name,
		Counters: maps.Clone(c.counters),
		Gauges:   maps.Clone(c.gauges),
		Uptime:   time.Since(c.started),
	}
}

// Flush logs the snapshot.
func (c *Collector) Flush(ctx context.Context) error {
	snap := c.Snapshot()
	c.logger.InfoContext(ctx, "metrics snapshot",
		slog.Any("counters", snap.Counters),
		slog.Any("gauges", snap.Gauges),
		slog.Duration("uptime", snap.Uptime),
	)
	return nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string)     {}
func (Nop) Gauge(string, float64) {}

var (
	_ domain.MetricsSink = (*Collector)(nil)
	_ domain.Flusher     = (*Collector)(nil)
	_ domain.MetricsSink = Nop{}
)
