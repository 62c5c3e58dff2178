package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// Sample places one small demo buy at the start of every window, and only
// in development. It exists to exercise the pipeline end to end.
//
// Params: quantity (default 0.001), price (default 50000), every_minutes
// (default 10).
type Sample struct {
	symbol   string
	quantity decimal.Decimal
	price    decimal.Decimal
	every    time.Duration

	lastWindow time.Time
}

// NewSample builds a Sample policy for the first configured symbol.
func NewSample(cfg Config) (Policy, error) {
	if len(cfg.Symbols) == 0 {
		return nil, errors.New("strategy sample: at least one symbol is required")
	}
	every := time.Duration(cfg.Float("every_minutes", 10) * float64(time.Minute))
	if every <= 0 {
		return nil, errors.New("strategy sample: every_minutes must be positive")
	}
	return &Sample{
		symbol:   cfg.Symbols[0],
		quantity: decimal.NewFromFloat(cfg.Float("quantity", 0.001)),
		price:    decimal.NewFromFloat(cfg.Float("price", 50000)),
		every:    every,
	}, nil
}

func (s *Sample) Name() string { return "sample" }

// Evaluate emits at most one intent per window.
func (s *Sample) Evaluate(_ context.Context, view View) ([]domain.TradeIntent, error) {
	if view.Environment != domain.EnvDevelopment {
		return nil, nil
	}
	window := view.Now.Truncate(s.every)
	if !window.After(s.lastWindow) || view.Now.Sub(window) >= 2*time.Second {
		return nil, nil
	}
	s.lastWindow = window

	intent, err := domain.NewTradeIntent(s.symbol, domain.OrderSideBuy, s.quantity, s.price)
	if err != nil {
		return nil, err
	}
	return []domain.TradeIntent{intent}, nil
}
