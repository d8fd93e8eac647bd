package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()

	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func newTestCSV(t *testing.T) (*CSVJournal, string, string) {
	t.Helper()
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)
	return j, tradesPath, equityPath
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, tradesPath, equityPath := newTestCSV(t)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{tradeHeader}, readCSV(t, tradesPath))
	assert.Equal(t, [][]string{equityHeader}, readCSV(t, equityPath))
}

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	j, tradesPath, _ := newTestCSV(t)

	open := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	closeT := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordTrade(TradeRecord{
		TradeID:     "T1",
		Symbol:      "BTCUSDT",
		Side:        "long",
		Size:        0.1,
		EntryPrice:  42000.5,
		ExitPrice:   42100,
		OpenTime:    open,
		CloseTime:   closeT,
		RealizedPnL: 9.95,
		Reason:      "price above mean, z-score 2.10",
	}))
	require.NoError(t, j.Close())

	rows := readCSV(t, tradesPath)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"T1", "BTCUSDT", "long", "0.100000", "42000.500000", "42100.000000",
		"2024-01-02T03:04:05Z", "2024-01-02T04:05:06Z", "9.950000",
		"price above mean, z-score 2.10",
	}, rows[1])
}

func TestCSVJournalRecordEquity(t *testing.T) {
	t.Parallel()

	j, _, equityPath := newTestCSV(t)

	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: ts, Realized: 10, Unrealized: -2.5, Equity: 7.5, Peak: 10, Drawdown: 0.25}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: ts.Add(time.Second), Equity: 8}))
	require.NoError(t, j.Close())

	rows := readCSV(t, equityPath)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2024-05-06T07:08:09Z", "10.000000", "-2.500000", "7.500000", "10.000000", "0.250000"}, rows[1])
	assert.Equal(t, "8.000000", rows[2][3])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "missing", "t.csv"), filepath.Join(dir, "e.csv"))
	assert.Error(t, err)

	_, err = NewCSV(filepath.Join(dir, "t.csv"), filepath.Join(dir, "missing", "e.csv"))
	assert.Error(t, err)
}
