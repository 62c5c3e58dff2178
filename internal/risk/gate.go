// Package risk holds the pre-trade risk gate.
package risk

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// Decision is the result of a risk check. Reason is empty when Allowed.
type Decision struct {
	Allowed  bool
	Reason   domain.RiskReason
	NextPos  decimal.Decimal
	Notional decimal.Decimal
}

// Gate evaluates trade intents against risk limits. It keeps no state and
// has no side effects; logging and metrics belong to the caller.
type Gate struct{}

// NewGate returns a Gate.
func NewGate() Gate { return Gate{} }

// Check runs the checks in a fixed order and returns the first failure:
//
//  1. |net + delta| <= MaxPositionSize
//  2. quantity * price <= RiskLimitValue
//  3. quantity <= DevQuantityCap (development only)
//  4. errorCount <= MaxConsecutiveErrors
func (Gate) Check(intent domain.TradeIntent, pos domain.Position, limits domain.RiskLimits, errorCount int) Decision {
	next := pos.NetQuantity.Add(intent.SignedDelta())
	notional := intent.Notional()

	deny := func(reason domain.RiskReason) Decision {
		return Decision{Reason: reason, NextPos: next, Notional: notional}
	}

	if next.Abs().GreaterThan(limits.MaxPositionSize) {
		return deny(domain.ReasonPositionSizeExceeded)
	}

	if notional.GreaterThan(limits.RiskLimitValue) {
		return deny(domain.ReasonRiskLimitExceeded)
	}

	if limits.Environment == domain.EnvDevelopment && intent.Quantity.GreaterThan(limits.DevQuantityCap) {
		return deny(domain.ReasonEnvironmentCapExceeded)
	}

	if errorCount > limits.MaxConsecutiveErrors {
		return deny(domain.ReasonErrorCircuitOpen)
	}

	return Decision{Allowed: true, NextPos: next, Notional: notional}
}
