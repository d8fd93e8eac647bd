package risk

import (
	"math"

	"github.com/rustyeddy/stratengine/strategies"
)

// Brackets returns the stop and take-profit prices implied by the policy
// for a signal entered at entry.
func Brackets(typ strategies.SignalType, entry float64, p Policy) (stop, takeProfit float64) {
	switch typ {
	case strategies.Buy:
		return entry * (1 - p.StopLossPct), entry * (1 + p.TakeProfitPct)
	case strategies.Sell:
		return entry * (1 + p.StopLossPct), entry * (1 - p.TakeProfitPct)
	default:
		return 0, 0
	}
}

// PlannedRisk is the loss if the stop is hit.
func PlannedRisk(qty, entry, stop float64) float64 {
	return math.Abs(qty) * math.Abs(entry-stop)
}

func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}

// SizeFor is the quantity whose stop-out loses riskPerTrade of equity.
func SizeFor(equity, riskPerTrade, entry, stop float64) float64 {
	perUnit := math.Abs(entry - stop)
	if perUnit == 0 || equity <= 0 {
		return 0
	}
	return equity * riskPerTrade / perUnit
}
