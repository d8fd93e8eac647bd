package risk

import (
	"errors"
	"fmt"
)

// Policy holds the limits a signal is checked against. It is built once from
// configuration and never changed during a run.
type Policy struct {
	EnableTrading   bool
	MaxPositionSize float64 // cap on Σ|open size| after the signal fills
	MaxDailyLoss    float64 // realized loss that halts new signals, positive

	// Carried for bracket calculation; not enforced by Check.
	RiskPerTrade  float64 // 0.02
	StopLossPct   float64 // 0.05
	TakeProfitPct float64 // 0.10
}

// DefaultPolicy mirrors config.Default: trading disabled until explicitly
// enabled.
func DefaultPolicy() Policy {
	return Policy{
		EnableTrading:   false,
		MaxPositionSize: 1000,
		MaxDailyLoss:    100,
		RiskPerTrade:    0.02,
		StopLossPct:     0.05,
		TakeProfitPct:   0.10,
	}
}

func (p Policy) Validate() error {
	var errs []error
	if p.MaxPositionSize <= 0 {
		errs = append(errs, fmt.Errorf("max_position_size must be > 0, got %g", p.MaxPositionSize))
	}
	if p.MaxDailyLoss < 0 {
		errs = append(errs, fmt.Errorf("max_daily_loss must be >= 0, got %g", p.MaxDailyLoss))
	}
	if p.RiskPerTrade < 0 || p.RiskPerTrade > 1 {
		errs = append(errs, fmt.Errorf("risk_per_trade must be within [0,1], got %g", p.RiskPerTrade))
	}
	if p.StopLossPct < 0 || p.StopLossPct >= 1 {
		errs = append(errs, fmt.Errorf("stop_loss_pct must be within [0,1), got %g", p.StopLossPct))
	}
	if p.TakeProfitPct < 0 {
		errs = append(errs, fmt.Errorf("take_profit_pct must be >= 0, got %g", p.TakeProfitPct))
	}
	return errors.Join(errs...)
}

// Exposure is the ledger state a check needs.
type Exposure struct {
	OpenSize    float64 // Σ|size| over open positions
	RealizedPnL float64 // cumulative realized pnl
}
