package ledger

import "time"

// PerformanceStats is derived on demand from the ledger; nothing here is
// stored independently.
type PerformanceStats struct {
	TotalTrades      int           `json:"total_trades" yaml:"total_trades"`
	WinningTrades    int           `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades     int           `json:"losing_trades" yaml:"losing_trades"`
	WinRate          float64       `json:"win_rate" yaml:"win_rate"`
	TotalPnL         float64       `json:"total_pnl" yaml:"total_pnl"`
	AvgWin           float64       `json:"avg_win" yaml:"avg_win"`
	AvgLoss          float64       `json:"avg_loss" yaml:"avg_loss"`
	MaxDrawdown      float64       `json:"max_drawdown" yaml:"max_drawdown"`
	CurrentPositions int           `json:"current_positions" yaml:"current_positions"`
	RunningTime      time.Duration `json:"running_time" yaml:"running_time"`

	UnrealizedPnL float64 `json:"unrealized_pnl" yaml:"unrealized_pnl"`
	Equity        float64 `json:"equity" yaml:"equity"`
	PeakEquity    float64 `json:"peak_equity" yaml:"peak_equity"`
}

// Stats derives a snapshot. RunningTime is left zero; the ledger has no
// notion of a run.
func (l *Ledger) Stats() PerformanceStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := PerformanceStats{
		TotalTrades:      len(l.trades),
		TotalPnL:         l.realized,
		MaxDrawdown:      l.maxDD,
		CurrentPositions: len(l.positions),
		UnrealizedPnL:    l.unrealizedLocked(),
		PeakEquity:       l.peak,
	}
	s.Equity = s.TotalPnL + s.UnrealizedPnL

	var winSum, lossSum float64
	for _, t := range l.trades {
		if t.Win() {
			s.WinningTrades++
			winSum += t.PnL
			continue
		}
		s.LosingTrades++
		if t.PnL < 0 {
			lossSum += t.PnL
		}
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
	}
	if s.WinningTrades > 0 {
		s.AvgWin = winSum / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = lossSum / float64(s.LosingTrades)
	}
	return s
}

// AsMap renders the externally exposed fields. running_time is in seconds.
func (s PerformanceStats) AsMap() map[string]any {
	return map[string]any{
		"total_trades":      s.TotalTrades,
		"winning_trades":    s.WinningTrades,
		"losing_trades":     s.LosingTrades,
		"win_rate":          s.WinRate,
		"total_pnl":         s.TotalPnL,
		"avg_win":           s.AvgWin,
		"avg_loss":          s.AvgLoss,
		"max_drawdown":      s.MaxDrawdown,
		"current_positions": s.CurrentPositions,
		"running_time":      s.RunningTime.Seconds(),
	}
}
