// Package report renders engine results as console tables and workbooks.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rustyeddy/stratengine/journal"
	"github.com/rustyeddy/stratengine/ledger"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// Stats writes the performance summary as a two-column table.
func Stats(w io.Writer, s ledger.PerformanceStats) {
	t := newTable(w, "PERFORMANCE")
	t.AppendRows([]table.Row{
		{"Total trades", s.TotalTrades},
		{"Winning", s.WinningTrades},
		{"Losing", s.LosingTrades},
		{"Win rate", fmt.Sprintf("%.2f%%", s.WinRate*100)},
		{"Total PnL", fmt.Sprintf("%.4f", s.TotalPnL)},
		{"Avg win", fmt.Sprintf("%.4f", s.AvgWin)},
		{"Avg loss", fmt.Sprintf("%.4f", s.AvgLoss)},
		{"Unrealized PnL", fmt.Sprintf("%.4f", s.UnrealizedPnL)},
		{"Equity", fmt.Sprintf("%.4f", s.Equity)},
		{"Max drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown*100)},
		{"Open positions", s.CurrentPositions},
		{"Running time", s.RunningTime.Round(time.Millisecond).String()},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 14, Align: text.AlignRight},
	})
	t.Render()
}

func Positions(w io.Writer, ps []ledger.Position) {
	t := newTable(w, "OPEN POSITIONS")
	t.AppendHeader(table.Row{"Symbol", "Side", "Size", "Entry", "Mark", "Notional", "Unrealized"})
	for _, p := range ps {
		t.AppendRow(table.Row{
			p.Symbol, p.Side, p.Size, p.EntryPrice, p.CurrentPrice,
			fmt.Sprintf("%.4f", p.Notional()), fmt.Sprintf("%.4f", p.UnrealizedPnL),
		})
	}
	if len(ps) == 0 {
		t.AppendRow(table.Row{"(none)"})
	}
	t.Render()
}

func Trades(w io.Writer, ts []ledger.Trade) {
	t := newTable(w, "TRADES")
	t.AppendHeader(table.Row{"ID", "Symbol", "Side", "Size", "Entry", "Exit", "PnL", "Closed"})
	total := 0.0
	for _, tr := range ts {
		total += tr.PnL
		t.AppendRow(table.Row{
			tr.ID, tr.Symbol, tr.Side, tr.Size, tr.EntryPrice, tr.Price,
			fmt.Sprintf("%.4f", tr.PnL), tr.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", fmt.Sprintf("%.4f", total), len(ts)})
	t.Render()
}

// JournalTrades renders trades read back from the journal.
func JournalTrades(w io.Writer, title string, recs []journal.TradeRecord) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"ID", "Symbol", "Side", "Size", "Entry", "Exit", "PnL", "Reason"})
	for _, r := range recs {
		t.AppendRow(table.Row{r.TradeID, r.Symbol, r.Side, r.Size, r.EntryPrice, r.ExitPrice, fmt.Sprintf("%.4f", r.RealizedPnL), r.Reason})
	}
	s := journal.Summarize(recs)
	t.AppendFooter(table.Row{"", "", "", "", "Wins/Losses", fmt.Sprintf("%d/%d", s.Wins, s.Losses), fmt.Sprintf("%.4f", s.NetPnL), ""})
	t.Render()
}

// Equity renders journaled equity snapshots, one row per mark.
func Equity(w io.Writer, title string, snaps []journal.EquitySnapshot) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Time", "Realized", "Unrealized", "Equity", "Drawdown"})
	worst := 0.0
	for _, e := range snaps {
		worst = math.Max(worst, e.Drawdown)
		t.AppendRow(table.Row{
			e.Time.UTC().Format(time.RFC3339),
			fmt.Sprintf("%.4f", e.Realized), fmt.Sprintf("%.4f", e.Unrealized),
			fmt.Sprintf("%.4f", e.Equity), fmt.Sprintf("%.2f%%", e.Drawdown*100),
		})
	}
	t.AppendFooter(table.Row{len(snaps), "", "", "Worst", fmt.Sprintf("%.2f%%", worst*100)})
	t.Render()
}
