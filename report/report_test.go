package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rustyeddy/stratengine/journal"
	"github.com/rustyeddy/stratengine/ledger"
)

var ts = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func sample() (ledger.PerformanceStats, []ledger.Trade, []ledger.Position) {
	stats := ledger.PerformanceStats{
		TotalTrades: 2, WinningTrades: 1, LosingTrades: 1, WinRate: 0.5,
		TotalPnL: 5, AvgWin: 10, AvgLoss: -5, MaxDrawdown: 0.125,
		CurrentPositions: 1, RunningTime: 3 * time.Second,
	}
	trades := []ledger.Trade{
		{ID: "T1", Symbol: "BTCUSDT", Side: ledger.Long, Size: 1, EntryPrice: 100, Price: 110, PnL: 10, OpenedAt: ts, Timestamp: ts},
		{ID: "T2", Symbol: "ETHUSDT", Side: ledger.Short, Size: 1, EntryPrice: 50, Price: 55, PnL: -5, OpenedAt: ts, Timestamp: ts},
	}
	positions := []ledger.Position{
		{Symbol: "BTCETH", Side: ledger.Long, Size: 0.1, EntryPrice: 0.05, CurrentPrice: 0.051, UnrealizedPnL: 0.0001, OpenedAt: ts},
	}
	return stats, trades, positions
}

func TestTables(t *testing.T) {
	t.Parallel()

	s, trades, positions := sample()
	var buf bytes.Buffer
	Stats(&buf, s)
	Positions(&buf, positions)
	Trades(&buf, trades)

	out := buf.String()
	assert.Contains(t, out, "PERFORMANCE")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "12.50%")
	assert.Contains(t, out, "BTCETH")
	assert.Contains(t, out, "0.0051", "notional")
	assert.Contains(t, out, "T2")
	assert.Contains(t, out, "5.0000", "trade total")
}

func TestPositionsEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Positions(&buf, nil)
	assert.Contains(t, buf.String(), "(none)")
}

func TestJournalTrades(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	JournalTrades(&buf, "TODAY", []journal.TradeRecord{
		{TradeID: "A", Symbol: "BTCUSDT", Side: "long", RealizedPnL: 2, Reason: "z"},
		{TradeID: "B", Symbol: "BTCUSDT", Side: "short", RealizedPnL: -1, Reason: "m"},
	})
	out := buf.String()
	assert.Contains(t, out, "TODAY")
	assert.Contains(t, out, "1/1")
	assert.Contains(t, out, "1.0000")
}

func TestEquity(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Equity(&buf, "EQUITY", []journal.EquitySnapshot{
		{Time: ts, Realized: 1, Equity: 1, Peak: 1},
		{Time: ts.Add(time.Second), Realized: 1, Unrealized: -0.5, Equity: 0.5, Peak: 1, Drawdown: 0.5},
		{Time: ts.Add(2 * time.Second), Realized: 2, Equity: 2, Peak: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "EQUITY")
	assert.Contains(t, out, "2024-01-02T03:04:06Z")
	assert.Contains(t, out, "-0.5000")
	assert.Contains(t, out, "50.00%", "worst drawdown")
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	s, trades, positions := sample()
	path := filepath.Join(t.TempDir(), "out", "run.xlsx")
	require.NoError(t, WriteXLSX(path, s, trades, positions))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{summarySheet, tradesSheet, positionsSheet}, fx.GetSheetList())

	v, err := fx.GetCellValue(summarySheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "total_trades", v)
	v, err = fx.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	rows, err := fx.GetRows(tradesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "T1", rows[1][0])
	assert.Equal(t, "short", rows[2][2])

	rows, err = fx.GetRows(positionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "BTCETH", rows[1][0])
}
