package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/stratengine/market"
)

// Event is one inbound item: exactly one of Snapshot or Order is set.
type Event struct {
	Snapshot *market.Snapshot
	Order    *market.OrderUpdate
}

func MarketEvent(s market.Snapshot) Event { return Event{Snapshot: &s} }

func OrderEvent(u market.OrderUpdate) Event { return Event{Order: &u} }

// Run consumes events one at a time until the channel closes, ctx is
// cancelled, or the engine is stopped. A failing or panicking event is
// logged and counted and the loop moves on. Run returns ctx.Err() on
// cancellation and nil otherwise.
func (e *Engine) Run(ctx context.Context, events <-chan Event) error {
	stop := e.stopped()
	if stop == nil || e.State() == Stopped {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := e.dispatch(ctx, ev); err != nil {
				e.errs.Add(1)
				e.metrics.Error("event")
				e.log.Warn("event failed", zap.Error(err))
			}
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.Error("panic")
			err = fmt.Errorf("recovered panic: %v", r)
		}
	}()

	switch {
	case ev.Snapshot != nil:
		return e.OnMarketData(ctx, *ev.Snapshot)
	case ev.Order != nil:
		return e.OnOrderUpdate(ctx, *ev.Order)
	default:
		return fmt.Errorf("empty event")
	}
}
