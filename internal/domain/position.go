package domain

import "github.com/shopspring/decimal"

// Position is the net signed quantity held in one instrument.
type Position struct {
	Instrument  string          `json:"instrument"`
	NetQuantity decimal.Decimal `json:"net_quantity"`
}

// IsFlat reports whether no quantity is held.
func (p Position) IsFlat() bool { return p.NetQuantity.IsZero() }
