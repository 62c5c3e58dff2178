package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// ParseOrderSide accepts "buy"/"sell" in any case.
func ParseOrderSide(s string) (OrderSide, error) {
	switch OrderSide(strings.ToLower(strings.TrimSpace(s))) {
	case OrderSideBuy:
		return OrderSideBuy, nil
	case OrderSideSell:
		return OrderSideSell, nil
	}
	return "", fmt.Errorf("%w: unknown side %q", ErrInvalidIntent, s)
}

// TradeIntent is a proposed trade that has not been risk-checked or signed.
// Build it with NewTradeIntent; the fields are never mutated afterwards.
type TradeIntent struct {
	ID         string
	Instrument string
	Side       OrderSide
	Quantity   decimal.Decimal
	LimitPrice decimal.Decimal
	CreatedAt  time.Time
}

// NewTradeIntent validates and stamps a new intent.
func NewTradeIntent(instrument string, side OrderSide, quantity, limitPrice decimal.Decimal) (TradeIntent, error) {
	if strings.TrimSpace(instrument) == "" {
		return TradeIntent{}, fmt.Errorf("%w: instrument is required", ErrInvalidIntent)
	}
	if side != OrderSideBuy && side != OrderSideSell {
		return TradeIntent{}, fmt.Errorf("%w: unknown side %q", ErrInvalidIntent, side)
	}
	if !quantity.IsPositive() {
		return TradeIntent{}, fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidIntent, quantity)
	}
	if !limitPrice.IsPositive() {
		return TradeIntent{}, fmt.Errorf("%w: limit price must be positive, got %s", ErrInvalidIntent, limitPrice)
	}
	return TradeIntent{
		ID:         uuid.NewString(),
		Instrument: instrument,
		Side:       side,
		Quantity:   quantity,
		LimitPrice: limitPrice,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// SignedDelta is the position change the intent would cause if filled:
// positive for buys, negative for sells.
func (i TradeIntent) SignedDelta() decimal.Decimal {
	if i.Side == OrderSideSell {
		return i.Quantity.Neg()
	}
	return i.Quantity
}

// Notional returns quantity * limit price.
func (i TradeIntent) Notional() decimal.Decimal {
	return i.Quantity.Mul(i.LimitPrice)
}

// IsBuy reports whether the intent buys.
func (i TradeIntent) IsBuy() bool { return i.Side == OrderSideBuy }
