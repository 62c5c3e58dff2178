package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTradeIntent(t *testing.T) {
	d := decimal.RequireFromString

	testCases := []struct {
		desc       string
		instrument string
		side       OrderSide
		qty, px    decimal.Decimal
		wantErr    bool
	}{
		{desc: "valid buy", instrument: "BTC", side: OrderSideBuy, qty: d("0.5"), px: d("100")},
		{desc: "valid sell", instrument: "ETH", side: OrderSideSell, qty: d("1"), px: d("2500")},
		{desc: "empty instrument", instrument: " ", side: OrderSideBuy, qty: d("1"), px: d("1"), wantErr: true},
		{desc: "bad side", instrument: "BTC", side: "hold", qty: d("1"), px: d("1"), wantErr: true},
		{desc: "zero quantity", instrument: "BTC", side: OrderSideBuy, qty: d("0"), px: d("1"), wantErr: true},
		{desc: "negative price", instrument: "BTC", side: OrderSideBuy, qty: d("1"), px: d("-1"), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			intent, err := NewTradeIntent(tc.instrument, tc.side, tc.qty, tc.px)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidIntent))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, intent.ID)
			assert.False(t, intent.CreatedAt.IsZero())
		})
	}
}

func TestTradeIntentSignedDelta(t *testing.T) {
	qty := decimal.RequireFromString("0.25")
	buy, err := NewTradeIntent("BTC", OrderSideBuy, qty, decimal.NewFromInt(100))
	require.NoError(t, err)
	sell, err := NewTradeIntent("BTC", OrderSideSell, qty, decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.True(t, buy.SignedDelta().Equal(qty))
	assert.True(t, sell.SignedDelta().Equal(qty.Neg()))
	assert.True(t, buy.Notional().Equal(decimal.NewFromInt(25)))
}

func TestParseEnvironment(t *testing.T) {
	env, err := ParseEnvironment("Prod")
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, env)

	env, err = ParseEnvironment("dev")
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, env)

	_, err = ParseEnvironment("qa")
	assert.Error(t, err)
}

func TestNewOrderAction(t *testing.T) {
	intent, err := NewTradeIntent("BTC", OrderSideSell, decimal.RequireFromString("0.001"), decimal.NewFromInt(50000))
	require.NoError(t, err)

	action := NewOrderAction(intent)
	require.Len(t, action.Orders, 1)
	assert.Equal(t, "order", action.Type)
	assert.False(t, action.Orders[0].IsBuy)
	assert.Equal(t, "0.001", action.Orders[0].Size)
	assert.Equal(t, "50000", action.Orders[0].LimitPrice)
	assert.Equal(t, "Gtc", action.Orders[0].OrderType.Limit.TIF)
}

func TestOrderOutcomeFilled(t *testing.T) {
	assert.True(t, Submitted("0xsig", ExchangeResponse{Status: "ok"}).Filled())
	assert.True(t, SimulatedFilled().Filled())
	assert.False(t, Rejected(ReasonRiskLimitExceeded).Filled())
	assert.False(t, Failed(ErrSigning).Filled())
	assert.Equal(t, "rejected(risk_limit_exceeded)", Rejected(ReasonRiskLimitExceeded).String())
}
