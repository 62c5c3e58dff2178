package ledger

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotUnknownInstrumentIsZero(t *testing.T) {
	l := New()
	assert.True(t, l.Snapshot("DOGE").IsZero())
	assert.Empty(t, l.Positions())
}

func TestApplyReturnsNewNet(t *testing.T) {
	l := New()
	got := l.Apply("BTC", decimal.RequireFromString("0.5"))
	assert.True(t, got.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, l.Snapshot("BTC").Equal(decimal.RequireFromString("0.5")))

	got = l.Apply("BTC", decimal.RequireFromString("-0.75"))
	assert.True(t, got.Equal(decimal.RequireFromString("-0.25")))
}

func TestSnapshotEqualsSumOfDeltasInAnyOrder(t *testing.T) {
	deltas := []string{"0.1", "-0.3", "1.25", "0.001", "-0.051", "2", "-1.7", "0.3333"}
	want := decimal.Zero
	for _, s := range deltas {
		want = want.Add(decimal.RequireFromString(s))
	}

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		perm := rng.Perm(len(deltas))
		l := New()
		for _, i := range perm {
			l.Apply("ETH", decimal.RequireFromString(deltas[i]))
		}
		require.True(t, l.Snapshot("ETH").Equal(want), "round %d: got %s want %s", round, l.Snapshot("ETH"), want)
	}
}

func TestConcurrentApply(t *testing.T) {
	l := New()
	step := decimal.RequireFromString("0.01")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				l.Apply("BTC", step)
				_ = l.Snapshot("BTC")
			}
		}()
	}
	wg.Wait()

	assert.True(t, l.Snapshot("BTC").Equal(decimal.NewFromInt(10)))
}

func TestPositionsSortedAndOpenCount(t *testing.T) {
	l := New()
	l.Apply("SOL", decimal.NewFromInt(3))
	l.Apply("BTC", decimal.NewFromInt(1))
	l.Apply("ETH", decimal.NewFromInt(2))
	l.Apply("ETH", decimal.NewFromInt(-2))

	ps := l.Positions()
	require.Len(t, ps, 3)
	assert.Equal(t, "BTC", ps[0].Instrument)
	assert.Equal(t, "ETH", ps[1].Instrument)
	assert.Equal(t, "SOL", ps[2].Instrument)
	assert.Equal(t, 2, l.Open())
	assert.True(t, l.Position("ETH").IsFlat())
}
