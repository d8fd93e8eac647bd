// Package ledger is the authoritative store of open positions and closed
// trades. PnL and drawdown are computed here and nowhere else.
package ledger

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/stratengine/internal/id"
)

// EffectKind says what a fill did to the symbol's position.
type EffectKind int

const (
	Opened  EffectKind = iota + 1 // no prior position
	Merged                        // same side, size added
	Reduced                       // opposite side, smaller than the position
	Closed                        // opposite side, exactly the position size
	Flipped                       // opposite side, larger: closed then reopened
)

func (k EffectKind) String() string {
	switch k {
	case Opened:
		return "opened"
	case Merged:
		return "merged"
	case Reduced:
		return "reduced"
	case Closed:
		return "closed"
	case Flipped:
		return "flipped"
	default:
		return "unknown"
	}
}

// Effect reports the outcome of ApplyFill. Trade is set when the fill reduced
// or closed a position; Position is a copy of the symbol's position after the
// fill, nil when none remains.
type Effect struct {
	Kind     EffectKind
	Trade    *Trade
	Position *Position
}

// EquityPoint is the ledger's valuation right after a mark.
type EquityPoint struct {
	Time        time.Time
	Realized    float64
	Unrealized  float64
	Equity      float64
	Peak        float64
	Drawdown    float64
	MaxDrawdown float64

	OpenPositions int
}

type Option func(*Ledger)

// WithClock overrides the time source used to stamp positions and trades.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Ledger is safe for concurrent use. Mutations take the write lock; every
// accessor returns copies so callers never hold references into the maps.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]*Position
	trades    []Trade
	realized  float64
	peak      float64
	maxDD     float64
	now       func() time.Time
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		positions: make(map[string]*Position),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ApplyFill books a fill stamped with the ledger clock.
func (l *Ledger) ApplyFill(symbol string, side Side, size, price float64) (Effect, error) {
	return l.ApplyFillAt(l.now(), symbol, side, size, price)
}

// ApplyFillAt books a fill at time ts.
//
//	no position        -> open
//	same side          -> merge, entry becomes the size-weighted average
//	opposite, smaller  -> partial close, one trade
//	opposite, equal    -> full close, one trade, position removed
//	opposite, larger   -> full close plus a new position on the fill's side
//	                      sized at the excess, entered at price
func (l *Ledger) ApplyFillAt(ts time.Time, symbol string, side Side, size, price float64) (Effect, error) {
	if err := validateFill(symbol, side, size, price); err != nil {
		return Effect{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok {
		p := l.openLocked(ts, symbol, side, size, price)
		return Effect{Kind: Opened, Position: copyPos(p)}, nil
	}

	if pos.Side == side {
		pos.EntryPrice = weightedEntry(pos.EntryPrice, pos.Size, price, size)
		pos.Size += size
		pos.Timestamp = ts
		l.revalueLocked(pos)
		return Effect{Kind: Merged, Position: copyPos(pos)}, nil
	}

	switch {
	case size < pos.Size:
		tr := l.closeLocked(ts, pos, size, price)
		return Effect{Kind: Reduced, Trade: &tr, Position: copyPos(pos)}, nil

	case size == pos.Size:
		tr := l.closeLocked(ts, pos, size, price)
		return Effect{Kind: Closed, Trade: &tr}, nil

	default:
		excess := size - pos.Size
		tr := l.closeLocked(ts, pos, pos.Size, price)
		p := l.openLocked(ts, symbol, side, excess, price)
		return Effect{Kind: Flipped, Trade: &tr, Position: copyPos(p)}, nil
	}
}

func validateFill(symbol string, side Side, size, price float64) error {
	e := &InvalidFillError{Symbol: symbol, Size: size, Price: price}
	switch {
	case math.IsNaN(size) || math.IsInf(size, 0) || size <= 0:
		e.Reason = "size must be positive"
	case math.IsNaN(price) || math.IsInf(price, 0) || price <= 0:
		e.Reason = "price must be positive"
	case side != Long && side != Short:
		e.Reason = "side must be long or short"
	default:
		return nil
	}
	return e
}

func (l *Ledger) openLocked(ts time.Time, symbol string, side Side, size, price float64) *Position {
	p := &Position{
		Symbol:       symbol,
		Side:         side,
		Size:         size,
		EntryPrice:   price,
		CurrentPrice: price,
		OpenedAt:     ts,
		Timestamp:    ts,
	}
	l.positions[symbol] = p
	return p
}

// closeLocked books a trade for size units of pos at price and shrinks pos,
// deleting it once nothing is left.
func (l *Ledger) closeLocked(ts time.Time, pos *Position, size, price float64) Trade {
	tr := Trade{
		ID:         id.At(ts),
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Size:       size,
		EntryPrice: pos.EntryPrice,
		Price:      price,
		PnL:        pos.PnLAt(price, size),
		OpenedAt:   pos.OpenedAt,
		Timestamp:  ts,
	}
	l.trades = append(l.trades, tr)
	l.realized += tr.PnL

	pos.Size -= size
	pos.Timestamp = ts
	if pos.Size <= 0 {
		delete(l.positions, pos.Symbol)
	} else {
		l.revalueLocked(pos)
	}
	return tr
}

func (l *Ledger) revalueLocked(p *Position) {
	p.UnrealizedPnL = p.PnLAt(p.CurrentPrice, p.Size)
}

// MarkToMarket revalues symbol at price using the ledger clock.
func (l *Ledger) MarkToMarket(symbol string, price float64) EquityPoint {
	return l.MarkToMarketAt(l.now(), symbol, price)
}

// MarkToMarketAt updates the symbol's open position, if any, then
// recomputes equity and the peak/drawdown state. Peak and max drawdown never
// decrease within the lifetime of the ledger.
func (l *Ledger) MarkToMarketAt(ts time.Time, symbol string, price float64) EquityPoint {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.positions[symbol]; ok {
		p.CurrentPrice = price
		p.Timestamp = ts
		l.revalueLocked(p)
	}

	pt := EquityPoint{
		Time:       ts,
		Realized:   l.realized,
		Unrealized: l.unrealizedLocked(),
	}
	pt.Equity = pt.Realized + pt.Unrealized

	if pt.Equity > l.peak {
		l.peak = pt.Equity
	}
	if l.peak > 0 {
		pt.Drawdown = (l.peak - pt.Equity) / l.peak
	}
	if pt.Drawdown > l.maxDD {
		l.maxDD = pt.Drawdown
	}
	pt.Peak = l.peak
	pt.MaxDrawdown = l.maxDD
	pt.OpenPositions = len(l.positions)
	return pt
}

func (l *Ledger) unrealizedLocked() float64 {
	total := 0.0
	for _, p := range l.positions {
		total += p.UnrealizedPnL
	}
	return total
}

// Position returns a copy of the open position for symbol.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Positions returns copies of all open positions ordered by symbol.
func (l *Ledger) Positions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Trades returns a copy of the trade history in booking order.
func (l *Ledger) Trades() []Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Exposure returns the summed absolute open size and the cumulative
// realized PnL, read under one lock.
func (l *Ledger) Exposure() (openSize, realized float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.positions {
		openSize += math.Abs(p.Size)
	}
	return openSize, l.realized
}

// RealizedPnL is the sum of PnL over all trades.
func (l *Ledger) RealizedPnL() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.realized
}

// MaxDrawdown is the largest fractional decline from peak seen so far.
func (l *Ledger) MaxDrawdown() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maxDD
}

func copyPos(p *Position) *Position {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
