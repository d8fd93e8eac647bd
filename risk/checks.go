// Package risk approves or rejects signals against configured limits.
package risk

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rustyeddy/stratengine/strategies"
)

// Violation codes.
const (
	TradingDisabled = "TRADING_DISABLED"
	MaxPositionSize = "MAX_POSITION_SIZE"
	DailyLossLimit  = "DAILY_LOSS_LIMIT"
)

// ErrRiskRejected is wrapped by every RejectedError.
var ErrRiskRejected = errors.New("risk rejected")

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	// Informational, from the policy's stop/take-profit percentages.
	Stop        float64
	TakeProfit  float64
	PlannedRisk float64
	PlannedRR   float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Has reports whether code is among the violations.
func (d Decision) Has(code string) bool {
	for _, v := range d.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Err is nil when allowed, otherwise a *RejectedError.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &RejectedError{Violations: d.Violations}
}

type RejectedError struct {
	Violations []Violation
}

func (e *RejectedError) Error() string {
	codes := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		codes[i] = v.Code
	}
	return fmt.Sprintf("%s: %s", ErrRiskRejected, strings.Join(codes, ","))
}

func (e *RejectedError) Unwrap() error { return ErrRiskRejected }

// Check evaluates sig against the policy. It has no side effects.
func Check(sig strategies.Signal, exp Exposure, p Policy) Decision {
	d := Decision{Allowed: true}

	if !p.EnableTrading {
		d.add(TradingDisabled, "trading is disabled")
		return d
	}

	if total := exp.OpenSize + sig.Quantity; total > p.MaxPositionSize {
		d.add(MaxPositionSize,
			fmt.Sprintf("open %.4f + signal %.4f exceeds max %.4f", exp.OpenSize, sig.Quantity, p.MaxPositionSize))
	}

	if exp.RealizedPnL < -p.MaxDailyLoss {
		d.add(DailyLossLimit,
			fmt.Sprintf("realized %.2f below limit %.2f", exp.RealizedPnL, -p.MaxDailyLoss))
	}

	d.Stop, d.TakeProfit = Brackets(sig.Type, sig.Price, p)
	d.PlannedRisk = PlannedRisk(sig.Quantity, sig.Price, d.Stop)
	d.PlannedRR = RR(sig.Price, d.Stop, d.TakeProfit)
	return d
}

// Gate wraps Check with a single warning per rejected signal.
type Gate struct {
	log *zap.Logger
}

func NewGate(log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{log: log.Named("risk")}
}

func (g *Gate) Check(sig strategies.Signal, exp Exposure, p Policy) Decision {
	d := Check(sig, exp, p)
	if !d.Allowed {
		codes := make([]string, len(d.Violations))
		for i, v := range d.Violations {
			codes[i] = v.Code
		}
		g.log.Warn("signal rejected",
			zap.String("symbol", sig.Symbol),
			zap.Stringer("type", sig.Type),
			zap.Float64("quantity", sig.Quantity),
			zap.Float64("price", sig.Price),
			zap.Strings("violations", codes),
			zap.Float64("open_size", exp.OpenSize),
			zap.Float64("realized_pnl", exp.RealizedPnL),
		)
	}
	return d
}

// Allow is Check reduced to its verdict.
func (g *Gate) Allow(sig strategies.Signal, exp Exposure, p Policy) bool {
	return g.Check(sig, exp, p).Allowed
}
