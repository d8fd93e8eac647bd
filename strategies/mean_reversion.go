package strategies

import (
	"fmt"
	"math"
)

// meanReversion fades moves beyond ZScoreThreshold standard deviations
// from the rolling mean.
func meanReversion(p Params, h *history, mid float64) verdict {
	if h.prices.Len() < p.MinHistory {
		return hold
	}

	std := h.prices.StdDev()
	if std == 0 {
		return hold
	}
	z := (mid - h.prices.Mean()) / std
	conf := math.Abs(z) / p.ZScoreThreshold

	switch {
	case z > p.ZScoreThreshold:
		return verdict{typ: Sell, confidence: conf, reason: fmt.Sprintf("price above mean, z-score %.2f", z)}
	case z < -p.ZScoreThreshold:
		return verdict{typ: Buy, confidence: conf, reason: fmt.Sprintf("price below mean, z-score %.2f", z)}
	default:
		return hold
	}
}
