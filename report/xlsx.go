package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/rustyeddy/stratengine/ledger"
)

const (
	summarySheet   = "Summary"
	tradesSheet    = "Trades"
	positionsSheet = "Positions"
)

// WriteXLSX writes a workbook with Summary, Trades and Positions sheets.
func WriteXLSX(path string, s ledger.PerformanceStats, trades []ledger.Trade, positions []ledger.Position) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), summarySheet); err != nil {
		return err
	}
	for _, name := range []string{tradesSheet, positionsSheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return err
		}
	}

	header, err := fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	summary := [][]any{{"Metric", "Value"}}
	m := s.AsMap()
	for _, k := range statKeys {
		summary = append(summary, []any{k, m[k]})
	}
	if err := writeRows(fx, summarySheet, summary, header); err != nil {
		return err
	}

	rows := [][]any{{"ID", "Symbol", "Side", "Size", "Entry", "Exit", "PnL", "Opened", "Closed"}}
	for _, t := range trades {
		rows = append(rows, []any{
			t.ID, t.Symbol, t.Side.String(), t.Size, t.EntryPrice, t.Price, t.PnL,
			t.OpenedAt.UTC(), t.Timestamp.UTC(),
		})
	}
	if err := writeRows(fx, tradesSheet, rows, header); err != nil {
		return err
	}

	rows = [][]any{{"Symbol", "Side", "Size", "Entry", "Mark", "Unrealized", "Opened"}}
	for _, p := range positions {
		rows = append(rows, []any{p.Symbol, p.Side.String(), p.Size, p.EntryPrice, p.CurrentPrice, p.UnrealizedPnL, p.OpenedAt.UTC()})
	}
	if err := writeRows(fx, positionsSheet, rows, header); err != nil {
		return err
	}

	fx.SetActiveSheet(0)
	return fx.SaveAs(path)
}

// statKeys orders the summary sheet.
var statKeys = []string{
	"total_trades", "winning_trades", "losing_trades", "win_rate", "total_pnl",
	"avg_win", "avg_loss", "max_drawdown", "current_positions", "running_time",
}

func writeRows(fx *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(rows[0]))
	return fx.SetColWidth(sheet, "A", lastCol, 16)
}
