// Package ledger keeps the authoritative in-memory net position per
// instrument for one bot.
package ledger

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// Ledger maps instrument to net signed quantity. All mutation goes through
// Apply under a single lock, so readers never observe a torn update.
type Ledger struct {
	mu  sync.RWMutex
	net map[string]decimal.Decimal
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{net: make(map[string]decimal.Decimal)}
}

// Apply adds delta to the instrument's net quantity and returns the result.
func (l *Ledger) Apply(instrument string, delta decimal.Decimal) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.net[instrument].Add(delta)
	l.net[instrument] = next
	return next
}

// Snapshot returns the net quantity for instrument, zero if never traded.
func (l *Ledger) Snapshot(instrument string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.net[instrument]
}

// Position wraps Snapshot as a domain.Position.
func (l *Ledger) Position(instrument string) domain.Position {
	return domain.Position{Instrument: instrument, NetQuantity: l.Snapshot(instrument)}
}

// Positions returns a copy of every tracked position sorted by instrument.
func (l *Ledger) Positions() []domain.Position {
	l.mu.RLock()
	out := make([]domain.Position, 0, len(l.net))
	for inst, q := range l.net {
		out = append(out, domain.Position{Instrument: inst, NetQuantity: q})
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

// Open counts instruments with a non-zero position.
func (l *Ledger) Open() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, q := range l.net {
		if !q.IsZero() {
			n++
		}
	}
	return n
}
