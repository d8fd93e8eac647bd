// Package replay reads recorded order-book snapshots and order updates from
// CSV and feeds them to an engine.
//
// Rows:
//
//	time,symbol,bids,asks
//	time,ORDER,order_id,status[,symbol]
//
// time is RFC3339, RFC3339Nano, or integer unix milliseconds. symbol is a
// ticker or an integer symbol code. bids and asks are best-first levels
// written price:qty|price:qty. A leading header row ("time,...") is
// skipped, as are blank rows.
package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/stratengine/engine"
	"github.com/rustyeddy/stratengine/market"
)

const orderTag = "ORDER"

// CSVFeed yields engine events from CSV rows, optionally filtered to
// [from, to).
type CSVFeed struct {
	r      *csv.Reader
	closer io.Closer
	from   time.Time
	to     time.Time
	line   int

	sawFirst bool
}

func NewCSVFeed(r io.Reader, from, to time.Time) *CSVFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVFeed{r: cr, from: from, to: to}
}

// OpenCSV opens path; Close releases the file.
func OpenCSV(path string, from, to time.Time) (*CSVFeed, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	f := NewCSVFeed(fh, from, to)
	f.closer = fh
	return f, nil
}

func (f *CSVFeed) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Next returns the next event in range. ok is false at end of input.
func (f *CSVFeed) Next() (ev engine.Event, ok bool, err error) {
	for {
		row, err := f.r.Read()
		if errors.Is(err, io.EOF) {
			return engine.Event{}, false, nil
		}
		if err != nil {
			return engine.Event{}, false, err
		}
		f.line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		ev, ts, err := parseRow(row)
		if err != nil {
			return engine.Event{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if !inRange(ts, f.from, f.to) {
			continue
		}
		return ev, true, nil
	}
}

func parseRow(row []string) (engine.Event, time.Time, error) {
	if len(row) < 4 {
		return engine.Event{}, time.Time{}, fmt.Errorf("need at least 4 columns, got %d", len(row))
	}
	ts, err := parseTime(row[0])
	if err != nil {
		return engine.Event{}, time.Time{}, err
	}

	tag := strings.TrimSpace(row[1])
	if strings.EqualFold(tag, orderTag) {
		upd := market.OrderUpdate{
			OrderID: strings.TrimSpace(row[2]),
			Status:  strings.TrimSpace(row[3]),
			Time:    ts,
		}
		if len(row) > 4 {
			upd.Symbol = market.ResolveSymbol(strings.TrimSpace(row[4]))
		}
		return engine.OrderEvent(upd), ts, nil
	}

	bids, err := ParseLevels(row[2])
	if err != nil {
		return engine.Event{}, time.Time{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := ParseLevels(row[3])
	if err != nil {
		return engine.Event{}, time.Time{}, fmt.Errorf("asks: %w", err)
	}
	return engine.MarketEvent(market.Snapshot{
		Symbol: market.ResolveSymbol(tag),
		Time:   ts,
		Bids:   bids,
		Asks:   asks,
	}), ts, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q: %w", s, err)
	}
	return t, nil
}

// ParseLevels parses "price:qty|price:qty". An empty string is an empty
// side.
func ParseLevels(s string) ([]market.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "|")
	out := make([]market.Level, 0, len(parts))
	for _, p := range parts {
		price, qty, found := strings.Cut(p, ":")
		if !found {
			return nil, fmt.Errorf("level %q: want price:qty", p)
		}
		pf, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
		if err != nil {
			return nil, fmt.Errorf("level %q price: %w", p, err)
		}
		qf, err := strconv.ParseFloat(strings.TrimSpace(qty), 64)
		if err != nil {
			return nil, fmt.Errorf("level %q quantity: %w", p, err)
		}
		out = append(out, market.Level{Price: pf, Quantity: qf})
	}
	return out, nil
}

// FormatLevels is the inverse of ParseLevels.
func FormatLevels(levels []market.Level) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = strconv.FormatFloat(l.Price, 'f', -1, 64) + ":" + strconv.FormatFloat(l.Quantity, 'f', -1, 64)
	}
	return strings.Join(parts, "|")
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
