package engine

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/stratengine/journal"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/metrics"
	"github.com/rustyeddy/stratengine/risk"
	"github.com/rustyeddy/stratengine/strategies"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// scripted emits queued signals in order, then holds.
type scripted struct {
	mu       sync.Mutex
	queue    []strategies.Signal
	observed int
	panicOn  string
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Observe(snap market.Snapshot) error {
	if snap.Symbol == s.panicOn {
		panic("boom")
	}
	if _, err := snap.Mid(); err != nil {
		return err
	}
	s.mu.Lock()
	s.observed++
	s.mu.Unlock()
	return nil
}

func (s *scripted) GenerateSignal(snap market.Snapshot) (strategies.Signal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return strategies.Signal{}, false, nil
	}
	sig := s.queue[0]
	s.queue = s.queue[1:]
	sig.Symbol = snap.Symbol
	return sig, true, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type memJournal struct {
	mu     sync.Mutex
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
	fail   bool
}

func (j *memJournal) RecordTrade(t journal.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("disk full")
	}
	j.trades = append(j.trades, t)
	return nil
}

func (j *memJournal) RecordEquity(e journal.EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("disk full")
	}
	j.equity = append(j.equity, e)
	return nil
}

func (j *memJournal) Close() error { return nil }

func book(symbol string, bid, ask float64) market.Snapshot {
	return market.Snapshot{
		Symbol: symbol,
		Time:   t0,
		Bids:   []market.Level{{Price: bid, Quantity: 1}},
		Asks:   []market.Level{{Price: ask, Quantity: 1}},
	}
}

func tradingPolicy() risk.Policy {
	p := risk.DefaultPolicy()
	p.EnableTrading = true
	return p
}

func newTestEngine(t *testing.T, src SignalSource, p risk.Policy, opts ...Option) *Engine {
	t.Helper()
	e, err := New(src, p, opts...)
	require.NoError(t, err)
	return e
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, tradingPolicy())
	assert.Error(t, err)

	bad := tradingPolicy()
	bad.MaxPositionSize = -1
	_, err = New(&scripted{}, bad)
	assert.Error(t, err)
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &scripted{}, tradingPolicy())
	assert.Equal(t, Stopped, e.State())

	steps := []struct {
		name    string
		op      func() bool
		changed bool
		want    State
	}{
		{"pause while stopped", e.Pause, false, Stopped},
		{"resume while stopped", e.Resume, false, Stopped},
		{"stop while stopped", e.Stop, false, Stopped},
		{"start", e.Start, true, Running},
		{"start again", e.Start, false, Running},
		{"resume while running", e.Resume, false, Running},
		{"pause", e.Pause, true, Paused},
		{"pause again", e.Pause, false, Paused},
		{"resume", e.Resume, true, Running},
		{"pause for start", e.Pause, true, Paused},
		{"start from paused", e.Start, true, Running},
		{"stop", e.Stop, true, Stopped},
		{"stop again", e.Stop, false, Stopped},
		{"restart", e.Start, true, Running},
	}
	for _, s := range steps {
		assert.Equal(t, s.changed, s.op(), s.name)
		assert.Equal(t, s.want, e.State(), s.name)
	}
	assert.Equal(t, "running", e.State().String())
}

func TestEventsIgnoredUnlessRunning(t *testing.T) {
	t.Parallel()

	src := &scripted{queue: []strategies.Signal{{Type: strategies.Buy, Price: 101, Quantity: 1}}}
	e := newTestEngine(t, src, tradingPolicy())
	ctx := context.Background()

	require.NoError(t, e.OnMarketData(ctx, book("BTCUSDT", 99, 101)))
	require.NoError(t, e.OnOrderUpdate(ctx, market.OrderUpdate{OrderID: "1", Status: "FILLED"}))

	e.Start()
	e.Pause()
	require.NoError(t, e.OnMarketData(ctx, book("BTCUSDT", 99, 101)))

	assert.Equal(t, 0, src.observed)
	assert.Equal(t, Counters{}, e.Counters())
	assert.Empty(t, e.Positions())
}

func TestTickCycle(t *testing.T) {
	t.Parallel()

	src := &scripted{queue: []strategies.Signal{
		{Type: strategies.Buy, Price: 101, Quantity: 1, Confidence: 1, Reason: "entry"},
		{Type: strategies.Sell, Price: 109, Quantity: 1, Confidence: 1, Reason: "exit"},
	}}
	j := &memJournal{}
	m := metrics.New(false)
	e := newTestEngine(t, src, tradingPolicy(), WithJournal(j), WithMetrics(m))
	e.Start()
	ctx := context.Background()

	require.NoError(t, e.OnMarketData(ctx, book("BTCUSDT", 99, 101)))

	pos := e.Positions()
	require.Len(t, pos, 1)
	assert.Equal(t, ledger.Long, pos[0].Side)
	assert.Equal(t, 101.0, pos[0].EntryPrice)
	assert.Equal(t, 100.0, pos[0].CurrentPrice, "marked at mid")
	assert.InDelta(t, -1.0, pos[0].UnrealizedPnL, 1e-12)

	require.NoError(t, e.OnMarketData(ctx, book("BTCUSDT", 109, 111)))
	assert.Empty(t, e.Positions())

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.InDelta(t, 8.0, trades[0].PnL, 1e-12)

	require.Len(t, j.trades, 1)
	assert.Equal(t, "exit", j.trades[0].Reason)
	assert.Equal(t, trades[0].ID, j.trades[0].TradeID)
	assert.Len(t, j.equity, 2)

	c := e.Counters()
	assert.Equal(t, uint64(2), c.Ticks)
	assert.Equal(t, uint64(2), c.Signals)
	assert.Equal(t, uint64(2), c.Fills)

	expected := `
# HELP stratengine_fills_total Fills applied to the ledger by effect
# TYPE stratengine_fills_total counter
stratengine_fills_total{effect="closed",symbol="BTCUSDT"} 1
stratengine_fills_total{effect="opened",symbol="BTCUSDT"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "stratengine_fills_total"))
}

func TestRiskRejectionDropsSignal(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	src := &scripted{queue: []strategies.Signal{{Type: strategies.Buy, Price: 101, Quantity: 1}}}
	e := newTestEngine(t, src, risk.DefaultPolicy(), WithLogger(zap.New(core)))
	e.Start()

	require.NoError(t, e.OnMarketData(context.Background(), book("BTCUSDT", 99, 101)))
	assert.Empty(t, e.Positions())

	c := e.Counters()
	assert.Equal(t, uint64(1), c.Signals)
	assert.Equal(t, uint64(1), c.Rejections)
	assert.Equal(t, uint64(0), c.Fills)

	rejected := logs.FilterMessage("signal rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "scripted", rejected[0].ContextMap()["strategy"])
}

func TestMaxPositionSizeGate(t *testing.T) {
	t.Parallel()

	p := tradingPolicy()
	p.MaxPositionSize = 2.5
	var queue []strategies.Signal
	for i := 0; i < 4; i++ {
		queue = append(queue, strategies.Signal{Type: strategies.Buy, Price: 101, Quantity: 1})
	}
	e := newTestEngine(t, &scripted{queue: queue}, p)
	e.Start()

	for i := 0; i < 4; i++ {
		require.NoError(t, e.OnMarketData(context.Background(), book("BTCUSDT", 99, 101)))
	}
	pos := e.Positions()
	require.Len(t, pos, 1)
	assert.Equal(t, 2.0, pos[0].Size)
	assert.Equal(t, uint64(2), e.Counters().Rejections)
}

func TestInvalidFillIsLoggedNotReturned(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	src := &scripted{queue: []strategies.Signal{{Type: strategies.Buy, Price: 101, Quantity: 0}}}
	e := newTestEngine(t, src, tradingPolicy(), WithLogger(zap.New(core)))
	e.Start()

	require.NoError(t, e.OnMarketData(context.Background(), book("BTCUSDT", 99, 101)))
	assert.Empty(t, e.Positions())
	assert.Equal(t, uint64(1), e.Counters().Errors)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "invalid fill")
}

func TestEmptyBookReturnsError(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &scripted{}, tradingPolicy())
	e.Start()

	err := e.OnMarketData(context.Background(), market.Snapshot{Symbol: "BTCUSDT", Bids: []market.Level{{Price: 1, Quantity: 1}}})
	assert.ErrorIs(t, err, market.ErrEmptyBook)
}

func TestMalformedSnapshotLeavesState(t *testing.T) {
	t.Parallel()

	src := &scripted{queue: []strategies.Signal{
		{Type: strategies.Buy, Price: 101, Quantity: 1},
		{Type: strategies.Sell, Price: 99, Quantity: 1},
	}}
	m := metrics.New(false)
	e := newTestEngine(t, src, tradingPolicy(), WithMetrics(m))
	e.Start()
	ctx := context.Background()

	require.NoError(t, e.OnMarketData(ctx, book("BTCUSDT", 99, 101)))
	before := e.Positions()
	require.Len(t, before, 1)

	tests := []struct {
		name string
		snap market.Snapshot
	}{
		{"nan bid", book("BTCUSDT", math.NaN(), 101)},
		{"inf ask", book("BTCUSDT", 99, math.Inf(1))},
		{"crossed", book("BTCUSDT", 105, 101)},
		{"negative price", book("BTCUSDT", -1, 101)},
	}
	for _, tt := range tests {
		err := e.OnMarketData(ctx, tt.snap)
		assert.ErrorIs(t, err, market.ErrMalformedBook, tt.name)
	}

	assert.Equal(t, 1, src.observed)
	assert.Len(t, src.queue, 1, "no signal consumed")
	after := e.Positions()
	assert.Equal(t, before, after)
	assert.False(t, math.IsNaN(after[0].UnrealizedPnL))
	assert.False(t, math.IsNaN(e.PerformanceStats().UnrealizedPnL))

	expected := `
# HELP stratengine_open_positions Open positions in the ledger
# TYPE stratengine_open_positions gauge
stratengine_open_positions 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "stratengine_open_positions"))
}

func TestStopDropsQueuedTick(t *testing.T) {
	t.Parallel()

	src := &scripted{queue: []strategies.Signal{{Type: strategies.Buy, Price: 101, Quantity: 1}}}
	e := newTestEngine(t, src, tradingPolicy())
	e.Start()

	e.proc.Lock()
	done := make(chan error, 2)
	go func() { done <- e.OnMarketData(context.Background(), book("BTCUSDT", 99, 101)) }()
	go func() {
		done <- e.OnOrderUpdate(context.Background(), market.OrderUpdate{OrderID: "7", Status: "FILLED"})
	}()
	time.Sleep(20 * time.Millisecond)
	require.True(t, e.Stop())
	e.proc.Unlock()

	for i := 0; i < 2; i++ {
		assert.NoError(t, <-done)
	}
	assert.Equal(t, Counters{}, e.Counters())
	assert.Equal(t, 0, src.observed)
	assert.Empty(t, e.Positions())
}

func TestOrderUpdateDoesNotTouchLedger(t *testing.T) {
	t.Parallel()

	m := metrics.New(false)
	e := newTestEngine(t, &scripted{}, tradingPolicy(), WithMetrics(m))
	e.Start()

	require.NoError(t, e.OnOrderUpdate(context.Background(), market.OrderUpdate{OrderID: "42", Status: "FILLED", Symbol: "BTCUSDT"}))
	assert.Empty(t, e.Positions())
	assert.Empty(t, e.Trades())
	assert.Equal(t, uint64(1), e.Counters().OrderUpdates)

	n, err := testutil.GatherAndCount(m.Registry(), "stratengine_order_updates_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJournalFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	src := &scripted{queue: []strategies.Signal{
		{Type: strategies.Sell, Price: 99, Quantity: 1},
		{Type: strategies.Buy, Price: 101, Quantity: 1},
	}}
	e := newTestEngine(t, src, tradingPolicy(), WithJournal(&memJournal{fail: true}))
	e.Start()

	require.NoError(t, e.OnMarketData(context.Background(), book("ETHUSDT", 99, 101)))
	require.NoError(t, e.OnMarketData(context.Background(), book("ETHUSDT", 99, 101)))
	assert.Len(t, e.Trades(), 1)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &scripted{}, tradingPolicy())
	e.Start()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.OnMarketData(ctx, book("BTCUSDT", 99, 101)), context.Canceled)
	assert.ErrorIs(t, e.OnOrderUpdate(ctx, market.OrderUpdate{}), context.Canceled)
}

func TestPerformanceStatsRunningTime(t *testing.T) {
	t.Parallel()

	clk := &clock{t: t0}
	e := newTestEngine(t, &scripted{}, tradingPolicy(), WithClock(clk.Now))
	assert.Zero(t, e.PerformanceStats().RunningTime)

	e.Start()
	clk.Advance(90 * time.Second)
	s := e.PerformanceStats()
	assert.Equal(t, 90*time.Second, s.RunningTime)
	assert.Equal(t, 90.0, s.AsMap()["running_time"])

	e.Stop()
	clk.Advance(time.Hour)
	assert.Equal(t, 90*time.Second, e.PerformanceStats().RunningTime, "frozen once stopped")

	e.Start()
	clk.Advance(time.Second)
	assert.Equal(t, time.Second, e.PerformanceStats().RunningTime, "start records a fresh start time")
}

func TestSnapshotWithoutTimeUsesClock(t *testing.T) {
	t.Parallel()

	clk := &clock{t: t0.Add(time.Hour)}
	src := &scripted{queue: []strategies.Signal{{Type: strategies.Buy, Price: 101, Quantity: 1}}}
	e := newTestEngine(t, src, tradingPolicy(), WithClock(clk.Now))
	e.Start()

	snap := book("BTCUSDT", 99, 101)
	snap.Time = time.Time{}
	require.NoError(t, e.OnMarketData(context.Background(), snap))

	pos := e.Positions()
	require.Len(t, pos, 1)
	assert.Equal(t, clk.Now(), pos[0].OpenedAt)
}

func TestWithMeanReversionGenerator(t *testing.T) {
	t.Parallel()

	gen, err := strategies.NewGenerator(strategies.DefaultParams(strategies.MeanReversion))
	require.NoError(t, err)
	e := newTestEngine(t, gen, tradingPolicy())
	e.Start()
	ctx := context.Background()

	for i := 0; i < 19; i++ {
		require.NoError(t, e.OnMarketData(ctx, book("BTCUSDT", 99.5, 100.5)))
	}
	assert.Zero(t, e.Counters().Signals)

	require.NoError(t, e.OnMarketData(ctx, book("BTCUSDT", 199.5, 200.5)))
	assert.Equal(t, uint64(1), e.Counters().Signals)

	pos := e.Positions()
	require.Len(t, pos, 1)
	assert.Equal(t, ledger.Short, pos[0].Side)
	assert.Equal(t, 199.5, pos[0].EntryPrice, "sell filled at the bid")
	assert.Equal(t, 0.1, pos[0].Size)
	assert.Equal(t, 1, e.PerformanceStats().CurrentPositions)
}
