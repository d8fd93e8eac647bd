package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DepthLevels is how many levels per side count toward aggregate volume.
const DepthLevels = 5

var (
	// ErrEmptyBook is returned when a snapshot is missing a bid or an ask.
	ErrEmptyBook = errors.New("order book side is empty")

	// ErrMalformedBook is returned for non-finite or non-positive prices,
	// negative or non-finite quantities, and crossed or locked books.
	ErrMalformedBook = errors.New("malformed order book")
)

// Level is one price level of the book.
type Level struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Snapshot is an order book at a point in time. Bids and Asks are best-first.
type Snapshot struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Bids   []Level   `json:"bids"`
	Asks   []Level   `json:"asks"`
}

// BestBid returns the top bid level.
func (s Snapshot) BestBid() (Level, error) {
	if len(s.Bids) == 0 {
		return Level{}, fmt.Errorf("%s bids: %w", s.Symbol, ErrEmptyBook)
	}
	return s.Bids[0], nil
}

// BestAsk returns the top ask level.
func (s Snapshot) BestAsk() (Level, error) {
	if len(s.Asks) == 0 {
		return Level{}, fmt.Errorf("%s asks: %w", s.Symbol, ErrEmptyBook)
	}
	return s.Asks[0], nil
}

// Mid is the arithmetic mean of the best bid and best ask.
func (s Snapshot) Mid() (float64, error) {
	bid, err := s.BestBid()
	if err != nil {
		return 0, err
	}
	ask, err := s.BestAsk()
	if err != nil {
		return 0, err
	}
	return (bid.Price + ask.Price) / 2, nil
}

// Spread is best ask minus best bid.
func (s Snapshot) Spread() (float64, error) {
	bid, err := s.BestBid()
	if err != nil {
		return 0, err
	}
	ask, err := s.BestAsk()
	if err != nil {
		return 0, err
	}
	return ask.Price - bid.Price, nil
}

// Validate checks every level and that the best bid is below the best ask.
// Zero quantities are allowed.
func (s Snapshot) Validate() error {
	if err := checkLevels(s.Symbol, "bid", s.Bids); err != nil {
		return err
	}
	if err := checkLevels(s.Symbol, "ask", s.Asks); err != nil {
		return err
	}
	spread, err := s.Spread()
	if err != nil {
		return err
	}
	if spread <= 0 {
		return fmt.Errorf("%s crossed book, bid %g >= ask %g: %w",
			s.Symbol, s.Bids[0].Price, s.Asks[0].Price, ErrMalformedBook)
	}
	return nil
}

func checkLevels(symbol, side string, levels []Level) error {
	for i, l := range levels {
		if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) || l.Price <= 0 {
			return fmt.Errorf("%s %s[%d] price %g: %w", symbol, side, i, l.Price, ErrMalformedBook)
		}
		if math.IsNaN(l.Quantity) || math.IsInf(l.Quantity, 0) || l.Quantity < 0 {
			return fmt.Errorf("%s %s[%d] quantity %g: %w", symbol, side, i, l.Quantity, ErrMalformedBook)
		}
	}
	return nil
}

// Depth sums quantities across the top n levels of both sides.
func (s Snapshot) Depth(n int) float64 {
	return sideDepth(s.Bids, n) + sideDepth(s.Asks, n)
}

func sideDepth(levels []Level, n int) float64 {
	if n > len(levels) {
		n = len(levels)
	}
	total := 0.0
	for _, l := range levels[:n] {
		total += l.Quantity
	}
	return total
}

// OrderUpdate is an order status change reported by the execution side.
type OrderUpdate struct {
	OrderID string    `json:"order_id"`
	Status  string    `json:"status"`
	Symbol  string    `json:"symbol,omitempty"`
	Time    time.Time `json:"time"`
}
