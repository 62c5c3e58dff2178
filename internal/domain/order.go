package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the persisted state of an order record.
type OrderStatus string

const (
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusSimulated OrderStatus = "simulated"
)

// OrderRecord is what gets persisted for every accepted or simulated order.
type OrderRecord struct {
	ID               string          `json:"id"`
	Bot              string          `json:"bot"`
	IntentID         string          `json:"intent_id"`
	Instrument       string          `json:"instrument"`
	Side             OrderSide       `json:"side"`
	Quantity         decimal.Decimal `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	Signature        string          `json:"signature,omitempty"`
	Nonce            uint64          `json:"nonce,omitempty"`
	Status           OrderStatus     `json:"status"`
	ExchangeResponse json.RawMessage `json:"exchange_response,omitempty"`
	Environment      Environment     `json:"environment"`
	Paper            bool            `json:"paper"`
	CreatedAt        time.Time       `json:"created_at"`
}

// LimitOrderType is the time-in-force wrapper of a limit order.
type LimitOrderType struct {
	Limit struct {
		TIF string `json:"tif"`
	} `json:"limit"`
}

// OrderWire is one order inside an order action, in exchange wire form.
type OrderWire struct {
	Asset      string         `json:"asset"`
	IsBuy      bool           `json:"isBuy"`
	Size       string         `json:"sz"`
	LimitPrice string         `json:"limitPx"`
	ReduceOnly bool           `json:"reduceOnly"`
	OrderType  LimitOrderType `json:"orderType"`
}

// OrderAction is the L1 action that gets signed and posted.
type OrderAction struct {
	Type     string      `json:"type"`
	Orders   []OrderWire `json:"orders"`
	Grouping string      `json:"grouping"`
}

// NewOrderAction builds a good-till-cancelled limit order action for intent.
func NewOrderAction(intent TradeIntent) OrderAction {
	w := OrderWire{
		Asset:      intent.Instrument,
		IsBuy:      intent.IsBuy(),
		Size:       intent.Quantity.String(),
		LimitPrice: intent.LimitPrice.String(),
	}
	w.OrderType.Limit.TIF = "Gtc"
	return OrderAction{Type: "order", Orders: []OrderWire{w}, Grouping: "na"}
}

// Signature is an ECDSA signature split into its EIP-712 components.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

// SignedAction is an action together with the nonce and signature that
// authorise it.
type SignedAction struct {
	Action    OrderAction `json:"action"`
	Nonce     uint64      `json:"nonce"`
	Signature Signature   `json:"signature"`
	// Hex is the 65-byte r||s||v signature, 0x-prefixed.
	Hex string `json:"-"`
}
