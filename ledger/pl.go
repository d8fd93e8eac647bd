package ledger

// pnl is the side-dependent profit of moving size units from entry to exit.
// Positive is profit.
func pnl(side Side, entry, exit, size float64) float64 {
	if side == Short {
		return (entry - exit) * size
	}
	return (exit - entry) * size
}

// weightedEntry folds a same-side fill into an existing average entry.
func weightedEntry(entry, size, price, add float64) float64 {
	return (entry*size + price*add) / (size + add)
}
