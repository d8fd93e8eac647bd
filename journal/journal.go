// Package journal is a write-only audit trail of closed trades, equity
// marks and run summaries. The engine never reads it back.
package journal

import (
	"context"
	"time"

	"github.com/rustyeddy/stratengine/ledger"
)

type TradeRecord struct {
	TradeID     string
	Symbol      string
	Side        string // side of the position that was closed
	Size        float64
	EntryPrice  float64
	ExitPrice   float64
	OpenTime    time.Time
	CloseTime   time.Time
	RealizedPnL float64
	Reason      string
}

type EquitySnapshot struct {
	Time       time.Time
	Realized   float64
	Unrealized float64
	Equity     float64
	Peak       float64
	Drawdown   float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// RunRecorder is implemented by backends that keep run summaries.
type RunRecorder interface {
	RecordRun(context.Context, RunRecord) error
}

// FromTrade converts a ledger trade. reason is usually the signal reason
// that triggered the closing fill.
func FromTrade(t ledger.Trade, reason string) TradeRecord {
	return TradeRecord{
		TradeID:     t.ID,
		Symbol:      t.Symbol,
		Side:        t.Side.String(),
		Size:        t.Size,
		EntryPrice:  t.EntryPrice,
		ExitPrice:   t.Price,
		OpenTime:    t.OpenedAt,
		CloseTime:   t.Timestamp,
		RealizedPnL: t.PnL,
		Reason:      reason,
	}
}

func FromEquity(p ledger.EquityPoint) EquitySnapshot {
	return EquitySnapshot{
		Time:       p.Time,
		Realized:   p.Realized,
		Unrealized: p.Unrealized,
		Equity:     p.Equity,
		Peak:       p.Peak,
		Drawdown:   p.Drawdown,
	}
}
