package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/stratengine/engine"
)

// Source yields events until ok is false.
type Source interface {
	Next() (ev engine.Event, ok bool, err error)
}

// Pump sends every event from src to out, then closes out.
func Pump(ctx context.Context, src Source, out chan<- engine.Event) error {
	defer close(out)
	for {
		ev, ok, err := src.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type Options struct {
	From, To time.Time
	Buffer   int // channel capacity, default 64
}

// Play replays the CSV file at path through e. e must already be started;
// it is left running. Feed errors stop the replay; per-event errors are
// handled by the engine's Run loop.
func Play(ctx context.Context, path string, e *engine.Engine, opts Options) error {
	feed, err := OpenCSV(path, opts.From, opts.To)
	if err != nil {
		return err
	}
	defer feed.Close()

	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan engine.Event, opts.Buffer)
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- Pump(ctx, feed, events) }()

	runErr := e.Run(ctx, events)
	cancel() // unblocks the pump if Run returned early
	perr := <-pumpErr

	if runErr != nil {
		return runErr
	}
	if perr != nil && !errors.Is(perr, context.Canceled) {
		return fmt.Errorf("replay %s: %w", path, perr)
	}
	return nil
}
