// Package strategy defines the pluggable policy a bot asks for trade
// intents on every iteration, plus the built-in policies.
package strategy

import (
	"context"
	"time"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// View is what a policy sees on each iteration.
type View struct {
	Bot         string
	Environment domain.Environment
	Symbols     []string
	Positions   []domain.Position
	Loop        int64
	Now         time.Time
}

// Policy proposes trade intents. It must not mutate positions; every intent
// it returns goes through the order pipeline.
type Policy interface {
	Name() string
	Evaluate(ctx context.Context, view View) ([]domain.TradeIntent, error)
}

// Config holds policy configuration.
type Config struct {
	Name    string
	Symbols []string
	Params  map[string]any
}

// Float reads a numeric parameter, falling back to def.
func (c Config) Float(key string, def float64) float64 {
	switch v := c.Params[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return def
}

// Noop never trades.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Evaluate(context.Context, View) ([]domain.TradeIntent, error) { return nil, nil }
