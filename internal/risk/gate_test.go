package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

var d = decimal.RequireFromString

func intent(t *testing.T, side domain.OrderSide, qty, px string) domain.TradeIntent {
	t.Helper()
	i, err := domain.NewTradeIntent("BTC", side, d(qty), d(px))
	require.NoError(t, err)
	return i
}

func position(net string) domain.Position {
	return domain.Position{Instrument: "BTC", NetQuantity: d(net)}
}

func limits(env domain.Environment) domain.RiskLimits {
	return domain.RiskLimits{
		MaxPositionSize:      d("1.0"),
		RiskLimitValue:       d("1000"),
		Environment:          env,
		MaxConsecutiveErrors: 10,
		DevQuantityCap:       d("0.01"),
	}
}

func TestGateCheck(t *testing.T) {
	gate := NewGate()

	testCases := []struct {
		desc       string
		intent     domain.TradeIntent
		pos        domain.Position
		limits     domain.RiskLimits
		errorCount int
		allowed    bool
		reason     domain.RiskReason
	}{
		{
			desc:    "allow within all limits",
			intent:  intent(t, domain.OrderSideBuy, "0.5", "100"),
			pos:     position("0"),
			limits:  limits(domain.EnvProduction),
			allowed: true,
		},
		{
			desc:   "position size exceeded on buy",
			intent: intent(t, domain.OrderSideBuy, "0.6", "100"),
			pos:    position("0.5"),
			limits: limits(domain.EnvProduction),
			reason: domain.ReasonPositionSizeExceeded,
		},
		{
			desc:   "position size exceeded on sell from short",
			intent: intent(t, domain.OrderSideSell, "0.3", "100"),
			pos:    position("-0.8"),
			limits: limits(domain.EnvProduction),
			reason: domain.ReasonPositionSizeExceeded,
		},
		{
			desc:    "sell reducing a long is allowed",
			intent:  intent(t, domain.OrderSideSell, "0.9", "100"),
			pos:     position("0.95"),
			limits:  limits(domain.EnvProduction),
			allowed: true,
		},
		{
			desc:    "exactly at position limit is allowed",
			intent:  intent(t, domain.OrderSideBuy, "0.5", "100"),
			pos:     position("0.5"),
			limits:  limits(domain.EnvProduction),
			allowed: true,
		},
		{
			desc:   "notional above risk limit",
			intent: intent(t, domain.OrderSideBuy, "0.1", "20000"),
			pos:    position("0"),
			limits: limits(domain.EnvProduction),
			reason: domain.ReasonRiskLimitExceeded,
		},
		{
			desc:   "development cap",
			intent: intent(t, domain.OrderSideBuy, "0.02", "50000"),
			pos:    position("0"),
			limits: limits(domain.EnvDevelopment),
			reason: domain.ReasonEnvironmentCapExceeded,
		},
		{
			desc:    "development cap ignored in staging",
			intent:  intent(t, domain.OrderSideBuy, "0.02", "50000"),
			pos:     position("0"),
			limits:  limits(domain.EnvStaging),
			allowed: true,
		},
		{
			desc:       "circuit open",
			intent:     intent(t, domain.OrderSideBuy, "0.001", "100"),
			pos:        position("0"),
			limits:     limits(domain.EnvProduction),
			errorCount: 11,
			reason:     domain.ReasonErrorCircuitOpen,
		},
		{
			desc:       "error count at threshold still allowed",
			intent:     intent(t, domain.OrderSideBuy, "0.001", "100"),
			pos:        position("0"),
			limits:     limits(domain.EnvProduction),
			errorCount: 10,
			allowed:    true,
		},
		{
			desc:       "position check wins over every later check",
			intent:     intent(t, domain.OrderSideBuy, "2", "50000"),
			pos:        position("0"),
			limits:     limits(domain.EnvDevelopment),
			errorCount: 50,
			reason:     domain.ReasonPositionSizeExceeded,
		},
		{
			desc:       "notional check wins over dev cap and circuit",
			intent:     intent(t, domain.OrderSideBuy, "0.5", "50000"),
			pos:        position("0"),
			limits:     limits(domain.EnvDevelopment),
			errorCount: 50,
			reason:     domain.ReasonRiskLimitExceeded,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := gate.Check(tc.intent, tc.pos, tc.limits, tc.errorCount)
			assert.Equal(t, tc.allowed, got.Allowed)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestGateNotionalDeniedRegardlessOfPosition(t *testing.T) {
	gate := NewGate()
	lim := limits(domain.EnvProduction)
	lim.MaxPositionSize = d("1000")

	for _, net := range []string{"-500", "-1", "0", "0.3", "999"} {
		got := gate.Check(intent(t, domain.OrderSideSell, "0.5", "2001"), position(net), lim, 0)
		assert.False(t, got.Allowed, "net=%s", net)
		assert.Equal(t, domain.ReasonRiskLimitExceeded, got.Reason, "net=%s", net)
	}
}

func TestGateReportsNextPosition(t *testing.T) {
	got := NewGate().Check(intent(t, domain.OrderSideSell, "0.25", "100"), position("0.5"), limits(domain.EnvProduction), 0)
	require.True(t, got.Allowed)
	assert.True(t, got.NextPos.Equal(d("0.25")))
	assert.True(t, got.Notional.Equal(d("25")))
}
