package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Side is the direction of an open position.
type Side int

const (
	Long Side = iota + 1
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Long {
		return Short
	}
	return Long
}

// ParseSide accepts long/short as well as buy/sell.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

// Position is one open exposure per symbol. Size is always > 0 while the
// position exists in the ledger.
type Position struct {
	Symbol        string
	Side          Side
	Size          float64
	EntryPrice    float64 // size-weighted average fill
	CurrentPrice  float64
	UnrealizedPnL float64
	OpenedAt      time.Time
	Timestamp     time.Time // last update
}

// PnLAt is the profit of size units of this position exited at price.
func (p Position) PnLAt(price, size float64) float64 {
	return pnl(p.Side, p.EntryPrice, price, size)
}

// Notional is size times current price.
func (p Position) Notional() float64 {
	return p.Size * p.CurrentPrice
}
