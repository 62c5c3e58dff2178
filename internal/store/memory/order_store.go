// Package memory is the in-process order store used when no database is
// configured. Records live for the life of the process.
package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// DefaultCapacity bounds the number of records kept.
const DefaultCapacity = 10_000

// OrderStore implements domain.Persistence and domain.OrderLister in memory.
// The oldest records are dropped once capacity is reached.
type OrderStore struct {
	capacity int
	logger   *slog.Logger

	mu      sync.RWMutex
	records []domain.OrderRecord
}

// NewOrderStore returns an empty store. A capacity <= 0 uses
// DefaultCapacity.
func NewOrderStore(capacity int, logger *slog.Logger) *OrderStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &OrderStore{
		capacity: capacity,
		logger:   logger.With(slog.String("component", "memory_store")),
	}
}

func (s *OrderStore) Connect(context.Context) error { return nil }

func (s *OrderStore) Close() {}

// LogOrder appends rec.
func (s *OrderStore) LogOrder(_ context.Context, rec domain.OrderRecord) error {
	s.mu.Lock()
	if len(s.records) >= s.capacity {
		s.records = slices.Delete(s.records, 0, len(s.records)-s.capacity+1)
	}
	s.records = append(s.records, rec)
	s.mu.Unlock()

	s.logger.Debug("order logged",
		slog.String("order_id", rec.ID),
		slog.String("bot", rec.Bot),
		slog.String("instrument", rec.Instrument),
		slog.String("status", string(rec.Status)),
	)
	return nil
}

// ListRecent returns up to limit records, newest first.
func (s *OrderStore) ListRecent(_ context.Context, limit int) ([]domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.OrderRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// ListSince returns bot's records created at or after since, oldest first.
func (s *OrderStore) ListSince(_ context.Context, bot string, since time.Time) ([]domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.OrderRecord
	for _, r := range s.records {
		if r.Bot == bot && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}
