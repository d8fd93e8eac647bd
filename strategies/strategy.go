// Package strategies turns order-book snapshots into trade signals. One
// Generator serves every rule; the rule is a Kind chosen at construction.
package strategies

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/stratengine/indicators"
	"github.com/rustyeddy/stratengine/market"
)

// ErrUnknownKind is returned for an unrecognised rule name.
var ErrUnknownKind = errors.New("unknown strategy kind")

// Kind selects the signal rule.
type Kind int

const (
	MeanReversion Kind = iota + 1
	Momentum
	RSI
)

func (k Kind) String() string {
	switch k {
	case MeanReversion:
		return "mean-reversion"
	case Momentum:
		return "momentum"
	case RSI:
		return "rsi"
	default:
		return "unknown"
	}
}

// KindByName parses a rule name, case and whitespace insensitive.
func KindByName(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mean-reversion", "meanreversion", "mean_reversion", "mr":
		return MeanReversion, nil
	case "momentum", "mom":
		return Momentum, nil
	case "rsi":
		return RSI, nil
	default:
		return 0, fmt.Errorf("%w %q (supported: mean-reversion, momentum, rsi)", ErrUnknownKind, name)
	}
}

// Params configures a Generator. Zero fields take the Kind's defaults.
type Params struct {
	Kind     Kind
	Capacity int     // history length per symbol
	Quantity float64 // size of every emitted signal

	// mean reversion
	MinHistory      int
	ZScoreThreshold float64

	// momentum
	ShortPeriod       int
	LongPeriod        int
	MomentumThreshold float64

	// rsi
	RSIPeriod  int
	Oversold   float64
	Overbought float64
}

// DefaultParams returns the stock settings for kind.
func DefaultParams(kind Kind) Params {
	p := Params{Kind: kind, Quantity: 0.1}
	switch kind {
	case MeanReversion:
		p.Capacity = 100
		p.MinHistory = 20
		p.ZScoreThreshold = 2.0
	case Momentum:
		p.Capacity = 50
		p.ShortPeriod = 10
		p.LongPeriod = 30
		p.MomentumThreshold = 0.02
	case RSI:
		p.Capacity = 100
		p.RSIPeriod = 14
		p.Oversold = 30
		p.Overbought = 70
	}
	return p
}

func (p Params) withDefaults() Params {
	d := DefaultParams(p.Kind)
	if p.Capacity == 0 {
		p.Capacity = d.Capacity
	}
	if p.Quantity == 0 {
		p.Quantity = d.Quantity
	}
	if p.MinHistory == 0 {
		p.MinHistory = d.MinHistory
	}
	if p.ZScoreThreshold == 0 {
		p.ZScoreThreshold = d.ZScoreThreshold
	}
	if p.ShortPeriod == 0 {
		p.ShortPeriod = d.ShortPeriod
	}
	if p.LongPeriod == 0 {
		p.LongPeriod = d.LongPeriod
	}
	if p.MomentumThreshold == 0 {
		p.MomentumThreshold = d.MomentumThreshold
	}
	if p.RSIPeriod == 0 {
		p.RSIPeriod = d.RSIPeriod
	}
	if p.Oversold == 0 {
		p.Oversold = d.Oversold
	}
	if p.Overbought == 0 {
		p.Overbought = d.Overbought
	}
	return p
}

// Validate checks the parameters after defaults are applied.
func (p Params) Validate() error {
	if p.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", p.Capacity)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %g", p.Quantity)
	}

	switch p.Kind {
	case MeanReversion:
		if p.ZScoreThreshold <= 0 {
			return fmt.Errorf("z-score threshold must be positive, got %g", p.ZScoreThreshold)
		}
		if p.MinHistory < 2 || p.MinHistory > p.Capacity {
			return fmt.Errorf("min history %d must be within [2, %d]", p.MinHistory, p.Capacity)
		}
	case Momentum:
		if p.ShortPeriod <= 0 || p.ShortPeriod >= p.LongPeriod {
			return fmt.Errorf("short period %d must be positive and below long period %d", p.ShortPeriod, p.LongPeriod)
		}
		if p.LongPeriod > p.Capacity {
			return fmt.Errorf("long period %d exceeds capacity %d", p.LongPeriod, p.Capacity)
		}
		if p.MomentumThreshold <= 0 {
			return fmt.Errorf("momentum threshold must be positive, got %g", p.MomentumThreshold)
		}
	case RSI:
		if p.RSIPeriod <= 0 || p.RSIPeriod+1 > p.Capacity {
			return fmt.Errorf("rsi period %d must be positive and fit capacity %d", p.RSIPeriod, p.Capacity)
		}
		if !(0 < p.Oversold && p.Oversold < p.Overbought && p.Overbought < 100) {
			return fmt.Errorf("rsi bands must satisfy 0 < oversold(%g) < overbought(%g) < 100", p.Oversold, p.Overbought)
		}
	default:
		return fmt.Errorf("%w %d", ErrUnknownKind, int(p.Kind))
	}
	return nil
}

// history is the per-symbol rolling state. volumes is only filled for
// momentum.
type history struct {
	prices  *indicators.Window
	volumes *indicators.Window
}

// Generator keeps bounded per-symbol history and evaluates the configured
// rule. It is not safe for concurrent use; the engine serializes calls.
type Generator struct {
	params  Params
	symbols map[string]*history
}

func NewGenerator(p Params) (*Generator, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("strategy %s: %w", p.Kind, err)
	}
	return &Generator{
		params:  p,
		symbols: make(map[string]*history),
	}, nil
}

func (g *Generator) Kind() Kind { return g.params.Kind }

func (g *Generator) Name() string { return g.params.Kind.String() }

func (g *Generator) Params() Params { return g.params }

// History exposes the price window for symbol, nil if never observed.
func (g *Generator) History(symbol string) indicators.Series {
	h, ok := g.symbols[symbol]
	if !ok {
		return nil
	}
	return h.prices
}

// Observe pushes the snapshot's mid price (and depth volume for momentum)
// into the symbol's history. A malformed snapshot leaves history untouched.
func (g *Generator) Observe(snap market.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	mid, err := snap.Mid()
	if err != nil {
		return err
	}

	h, ok := g.symbols[snap.Symbol]
	if !ok {
		h = &history{prices: indicators.NewWindow(g.params.Capacity)}
		if g.params.Kind == Momentum {
			h.volumes = indicators.NewWindow(g.params.Capacity)
		}
		g.symbols[snap.Symbol] = h
	}

	h.prices.Push(mid)
	if h.volumes != nil {
		h.volumes.Push(snap.Depth(market.DepthLevels))
	}
	return nil
}

// GenerateSignal evaluates the rule against the symbol's history and the
// snapshot. ok is false when the rule has nothing to say; insufficient or
// degenerate history is not an error.
func (g *Generator) GenerateSignal(snap market.Snapshot) (sig Signal, ok bool, err error) {
	if err := snap.Validate(); err != nil {
		return Signal{}, false, err
	}
	mid, err := snap.Mid()
	if err != nil {
		return Signal{}, false, err
	}

	h, found := g.symbols[snap.Symbol]
	if !found {
		return Signal{}, false, nil
	}

	var v verdict
	switch g.params.Kind {
	case MeanReversion:
		v = meanReversion(g.params, h, mid)
	case Momentum:
		v = momentum(g.params, h, mid)
	case RSI:
		v = relativeStrength(g.params, h)
	default:
		return Signal{}, false, fmt.Errorf("%w %d", ErrUnknownKind, int(g.params.Kind))
	}
	if v.typ == Hold {
		return Signal{}, false, nil
	}

	sig = Signal{
		Type:       v.typ,
		Symbol:     snap.Symbol,
		Quantity:   g.params.Quantity,
		Confidence: clamp01(v.confidence),
		Reason:     v.reason,
		Time:       snap.Time,
	}

	// Buys lift the offer, sells hit the bid.
	if v.typ == Buy {
		ask, _ := snap.BestAsk()
		sig.Price = ask.Price
	} else {
		bid, _ := snap.BestBid()
		sig.Price = bid.Price
	}
	return sig, true, nil
}

// OnTick observes the snapshot and then evaluates it.
func (g *Generator) OnTick(snap market.Snapshot) (Signal, bool, error) {
	if err := g.Observe(snap); err != nil {
		return Signal{}, false, err
	}
	return g.GenerateSignal(snap)
}

// Reset drops all history.
func (g *Generator) Reset() {
	g.symbols = make(map[string]*history)
}

// verdict is what a rule decided before it is priced and sized.
type verdict struct {
	typ        SignalType
	confidence float64
	reason     string
}

var hold = verdict{typ: Hold}
