package ledger

import (
	"errors"
	"fmt"
)

// ErrInvalidFill is the sentinel wrapped by every rejected fill.
var ErrInvalidFill = errors.New("invalid fill")

// InvalidFillError describes a fill the ledger refused to apply. It always
// indicates a defect upstream: signals are never sized at or below zero.
type InvalidFillError struct {
	Symbol string
	Size   float64
	Price  float64
	Reason string
}

func (e *InvalidFillError) Error() string {
	return fmt.Sprintf("invalid fill %s size=%g price=%g: %s", e.Symbol, e.Size, e.Price, e.Reason)
}

func (e *InvalidFillError) Unwrap() error {
	return ErrInvalidFill
}
