package service

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/orderbot/internal/domain"
	"github.com/alanyoungcy/orderbot/internal/ledger"
)

// PositionService publishes the ledger state of one bot: gauges on every
// refresh and, when a cache is configured, a mirror of every position.
type PositionService struct {
	bot     string
	ledger  *ledger.Ledger
	state   *domain.RunState
	cache   domain.PositionCache
	metrics domain.MetricsSink
	logger  *slog.Logger
}

// NewPositionService creates a PositionService. cache may be nil.
func NewPositionService(bot string, book *ledger.Ledger, state *domain.RunState, cache domain.PositionCache, metrics domain.MetricsSink, logger *slog.Logger) *PositionService {
	return &PositionService{
		bot:     bot,
		ledger:  book,
		state:   state,
		cache:   cache,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "position_service"), slog.String("bot", bot)),
	}
}

// Refresh updates position gauges and the shared cache. Cache failures are
// logged and counted; they do not fail the iteration.
func (s *PositionService) Refresh(ctx context.Context) []domain.Position {
	positions := s.ledger.Positions()

	s.metrics.Gauge("positions_updated", 1)
	s.metrics.Gauge("total_positions", float64(s.ledger.Open()))
	s.metrics.Gauge("order_count", float64(s.state.OrderCount()))
	s.metrics.Gauge("error_count", float64(s.state.ErrorCount()))
	for _, p := range positions {
		s.metrics.Gauge("position_"+p.Instrument, p.NetQuantity.InexactFloat64())
	}

	if s.cache != nil && len(positions) > 0 {
		if err := s.cache.SetPositions(ctx, s.bot, positions); err != nil {
			s.metrics.IncCounter("position_cache_errors")
			s.logger.WarnContext(ctx, "position_service: mirror positions failed",
				slog.Int("positions", len(positions)),
				slog.String("error", err.Error()),
			)
		}
	}
	return positions
}
