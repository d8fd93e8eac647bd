package ledger

import "time"

// Trade is an immutable record of a reducing or closing fill.
type Trade struct {
	ID         string
	Symbol     string
	Side       Side // side of the position that was reduced
	Size       float64
	EntryPrice float64
	Price      float64 // exit price
	PnL        float64 // realized
	OpenedAt   time.Time
	Timestamp  time.Time
}

// Win reports whether the trade booked a profit. Break-even trades count
// as losses.
func (t Trade) Win() bool {
	return t.PnL > 0
}
