package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/stratengine/indicators"
)

// momentum follows short/long moving-average divergence, confirmed by the
// price sitting on the same side of the depth-weighted VWAP.
func momentum(p Params, h *history, mid float64) verdict {
	if h.prices.Len() < p.LongPeriod {
		return hold
	}

	shortMA := h.prices.TailMean(p.ShortPeriod)
	longMA := h.prices.TailMean(p.LongPeriod)
	if longMA == 0 {
		return hold
	}
	mom := (shortMA - longMA) / longMA

	vwap, ok := indicators.VWAP(h.prices.Values(), h.volumes.Values())
	if !ok {
		vwap = mid
	}
	if vwap == 0 {
		return hold
	}
	ratio := (mid - vwap) / vwap
	conf := math.Abs(mom) / p.MomentumThreshold

	switch {
	case mom > p.MomentumThreshold && ratio > 0:
		return verdict{typ: Buy, confidence: conf,
			reason: fmt.Sprintf("upward momentum %.4f, price/vwap %.4f", mom, ratio)}
	case mom < -p.MomentumThreshold && ratio < 0:
		return verdict{typ: Sell, confidence: conf,
			reason: fmt.Sprintf("downward momentum %.4f, price/vwap %.4f", mom, ratio)}
	default:
		return hold
	}
}
