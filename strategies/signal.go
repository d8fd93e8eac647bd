package strategies

import (
	"fmt"
	"time"
)

// SignalType is the action a generator proposes.
type SignalType int

const (
	Hold SignalType = iota
	Buy
	Sell
)

func (t SignalType) String() string {
	switch t {
	case Hold:
		return "hold"
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Signal is a transient trade proposal, consumed once by the engine.
type Signal struct {
	Type       SignalType
	Symbol     string
	Price      float64
	Quantity   float64
	Confidence float64 // always within [0,1]
	Reason     string
	Time       time.Time
}

func (s Signal) String() string {
	return fmt.Sprintf("%s %s %g @ %g (confidence %.2f): %s",
		s.Type, s.Symbol, s.Quantity, s.Price, s.Confidence, s.Reason)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
