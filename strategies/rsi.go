package strategies

import (
	"fmt"

	"github.com/rustyeddy/stratengine/indicators"
)

// relativeStrength buys oversold and sells overbought readings. Confidence
// grows with the distance past the band.
func relativeStrength(p Params, h *history) verdict {
	if h.prices.Len() < p.RSIPeriod+1 {
		return hold
	}

	rsi, err := indicators.RSI(h.prices.Values(), p.RSIPeriod)
	if err != nil {
		return hold
	}

	switch {
	case rsi < p.Oversold:
		return verdict{typ: Buy, confidence: (p.Oversold - rsi) / p.Oversold,
			reason: fmt.Sprintf("oversold, rsi %.2f", rsi)}
	case rsi > p.Overbought:
		return verdict{typ: Sell, confidence: (rsi - p.Overbought) / (100 - p.Overbought),
			reason: fmt.Sprintf("overbought, rsi %.2f", rsi)}
	default:
		return hold
	}
}
