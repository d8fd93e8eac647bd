// market/instruments.go
package market

import "strconv"

// Unknown is returned for symbol codes outside the table.
const Unknown = "UNKNOWN"

// SymbolCode is the integer identifier a feed uses for a trading pair.
type SymbolCode int

const (
	BTCUSDT SymbolCode = iota
	ETHUSDT
	BTCETH
)

var Symbols = map[SymbolCode]string{
	BTCUSDT: "BTCUSDT",
	ETHUSDT: "ETHUSDT",
	BTCETH:  "BTCETH",
}

// SymbolName resolves a code to its ticker. Unmapped codes degrade to
// Unknown so one bad identifier never halts the tick stream.
func SymbolName(code SymbolCode) string {
	if name, ok := Symbols[code]; ok {
		return name
	}
	return Unknown
}

func (c SymbolCode) String() string {
	return SymbolName(c)
}

// ResolveSymbol accepts either an integer code ("0") or a ticker ("BTCUSDT").
func ResolveSymbol(s string) string {
	if n, err := strconv.Atoi(s); err == nil {
		return SymbolName(SymbolCode(n))
	}
	if s == "" {
		return Unknown
	}
	return s
}
