// Package engine drives the per-tick cycle. Each snapshot feeds the signal
// rule, an approved signal becomes a ledger fill, and the ledger is marked at
// the snapshot's mid.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/stratengine/journal"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/metrics"
	"github.com/rustyeddy/stratengine/risk"
	"github.com/rustyeddy/stratengine/strategies"
)

// SignalSource is the pluggable signal rule. *strategies.Generator
// implements it.
type SignalSource interface {
	Name() string
	Observe(market.Snapshot) error
	GenerateSignal(market.Snapshot) (strategies.Signal, bool, error)
}

type Option func(*Engine)

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithJournal records closed trades and equity marks. Write failures are
// logged and otherwise ignored.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock sets the time source for lifecycle stamps and for snapshots
// that carry no time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Counters are cumulative event counts since construction.
type Counters struct {
	Ticks        uint64
	Signals      uint64
	Rejections   uint64
	Fills        uint64
	OrderUpdates uint64
	Errors       uint64
}

type Engine struct {
	src    SignalSource
	policy risk.Policy
	gate   *risk.Gate
	ledger *ledger.Ledger

	journal journal.Journal
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	// proc serializes event processing; mu guards lifecycle state only, so
	// Stop and stats never wait on a tick.
	proc sync.Mutex

	mu        sync.Mutex
	state     State
	startedAt time.Time
	stoppedAt time.Time
	stopCh    chan struct{}

	ticks, signals, rejections, fills, orderUpdates, errs atomic.Uint64
}

// New builds a stopped engine. The policy is copied and never changes.
func New(src SignalSource, policy risk.Policy, opts ...Option) (*Engine, error) {
	if src == nil {
		return nil, errors.New("engine: nil signal source")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		src:    src,
		policy: policy,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(zap.String("strategy", src.Name()))
	e.gate = risk.NewGate(e.log)
	e.ledger = ledger.New(ledger.WithClock(e.now))
	return e, nil
}

func (e *Engine) Name() string { return e.src.Name() }

func (e *Engine) Policy() risk.Policy { return e.policy }

// OnMarketData runs one tick cycle. It is a no-op unless running. Errors
// come from a malformed snapshot, which is rejected before any history or
// ledger state changes; risk rejections are not errors.
func (e *Engine) OnMarketData(ctx context.Context, snap market.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.running() {
		return nil
	}

	e.proc.Lock()
	defer e.proc.Unlock()

	// Stop may have landed while this tick waited for proc.
	if !e.running() {
		return nil
	}

	begin := time.Now()
	defer func() { e.metrics.Tick(snap.Symbol, time.Since(begin)) }()
	e.ticks.Add(1)

	if err := snap.Validate(); err != nil {
		return fmt.Errorf("snapshot %s: %w", snap.Symbol, err)
	}
	if err := e.src.Observe(snap); err != nil {
		return fmt.Errorf("observe %s: %w", snap.Symbol, err)
	}
	sig, ok, err := e.src.GenerateSignal(snap)
	if err != nil {
		return fmt.Errorf("generate %s: %w", snap.Symbol, err)
	}

	ts := snap.Time
	if ts.IsZero() {
		ts = e.now()
	}

	if ok && sig.Type != strategies.Hold {
		e.handleSignal(ts, sig)
	}

	mid, err := snap.Mid()
	if err != nil {
		return fmt.Errorf("mark %s: %w", snap.Symbol, err)
	}
	pt := e.ledger.MarkToMarketAt(ts, snap.Symbol, mid)
	e.metrics.Equity(pt.Realized, pt.Unrealized, pt.Equity, pt.Drawdown, pt.MaxDrawdown, pt.OpenPositions)
	if e.journal != nil {
		if err := e.journal.RecordEquity(journal.FromEquity(pt)); err != nil {
			e.log.Warn("journal equity write failed", zap.Error(err))
			e.metrics.Error("journal")
		}
	}
	return nil
}

func (e *Engine) handleSignal(ts time.Time, sig strategies.Signal) {
	e.signals.Add(1)
	e.metrics.Signal(sig.Symbol, sig.Type.String(), sig.Confidence)
	e.log.Debug("signal",
		zap.String("symbol", sig.Symbol),
		zap.Stringer("type", sig.Type),
		zap.Float64("price", sig.Price),
		zap.Float64("quantity", sig.Quantity),
		zap.Float64("confidence", sig.Confidence),
		zap.String("reason", sig.Reason),
	)

	openSize, realized := e.ledger.Exposure()
	d := e.gate.Check(sig, risk.Exposure{OpenSize: openSize, RealizedPnL: realized}, e.policy)
	if !d.Allowed {
		e.rejections.Add(1)
		codes := make([]string, len(d.Violations))
		for i, v := range d.Violations {
			codes[i] = v.Code
		}
		e.metrics.Rejected(codes...)
		return
	}

	side := ledger.Long
	if sig.Type == strategies.Sell {
		side = ledger.Short
	}

	eff, err := e.ledger.ApplyFillAt(ts, sig.Symbol, side, sig.Quantity, sig.Price)
	if err != nil {
		// The generator should never size or price a signal like this.
		e.errs.Add(1)
		e.metrics.Error("invalid_fill")
		e.log.Error("signal generator produced an invalid fill",
			zap.Error(err),
			zap.String("symbol", sig.Symbol),
			zap.Float64("price", sig.Price),
			zap.Float64("quantity", sig.Quantity),
		)
		return
	}

	e.fills.Add(1)
	e.metrics.Fill(sig.Symbol, eff.Kind.String())
	e.log.Info("fill",
		zap.String("symbol", sig.Symbol),
		zap.Stringer("side", side),
		zap.Float64("price", sig.Price),
		zap.Float64("quantity", sig.Quantity),
		zap.Stringer("effect", eff.Kind),
	)

	if eff.Trade != nil && e.journal != nil {
		if err := e.journal.RecordTrade(journal.FromTrade(*eff.Trade, sig.Reason)); err != nil {
			e.log.Warn("journal trade write failed", zap.Error(err), zap.String("trade_id", eff.Trade.ID))
			e.metrics.Error("journal")
		}
	}
}

// OnOrderUpdate logs and counts the event. Fills are driven only by
// signals, so the ledger is not touched.
func (e *Engine) OnOrderUpdate(ctx context.Context, upd market.OrderUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.running() {
		return nil
	}

	e.proc.Lock()
	defer e.proc.Unlock()

	if !e.running() {
		return nil
	}

	e.orderUpdates.Add(1)
	e.metrics.OrderUpdate(upd.Status)
	e.log.Info("order update",
		zap.String("order_id", upd.OrderID),
		zap.String("status", upd.Status),
		zap.String("symbol", upd.Symbol),
	)
	return nil
}

// PerformanceStats derives stats from the ledger plus the running time.
// It never blocks on the tick path.
func (e *Engine) PerformanceStats() ledger.PerformanceStats {
	s := e.ledger.Stats()
	s.RunningTime = e.RunningTime()
	return s
}

// RunningTime is the time since the last Start, frozen once stopped.
func (e *Engine) RunningTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.startedAt.IsZero():
		return 0
	case e.state == Stopped:
		return e.stoppedAt.Sub(e.startedAt)
	default:
		return e.now().Sub(e.startedAt)
	}
}

func (e *Engine) Positions() []ledger.Position { return e.ledger.Positions() }

func (e *Engine) Trades() []ledger.Trade { return e.ledger.Trades() }

func (e *Engine) Counters() Counters {
	return Counters{
		Ticks:        e.ticks.Load(),
		Signals:      e.signals.Load(),
		Rejections:   e.rejections.Load(),
		Fills:        e.fills.Load(),
		OrderUpdates: e.orderUpdates.Load(),
		Errors:       e.errs.Load(),
	}
}
