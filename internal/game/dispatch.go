package game

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Dispatch selects how a phase's per-agent requests are issued.
type Dispatch int

const (
	// Sequential completes each agent's request, retries included, before
	// the next agent's request begins.
	Sequential Dispatch = iota
	// Concurrent runs requests on a bounded worker pool and joins them
	// before the phase ends.
	Concurrent
)

// ParseDispatch parses "sequential" or "concurrent".
func ParseDispatch(s string) (Dispatch, error) {
	switch s {
	case "", "sequential":
		return Sequential, nil
	case "concurrent":
		return Concurrent, nil
	}
	return 0, fmt.Errorf("unknown dispatch mode %q", s)
}

func (d Dispatch) String() string {
	if d == Concurrent {
		return "concurrent"
	}
	return "sequential"
}

// dispatch runs task for every index in [0, n). Each task writes only its
// own slot, so results need no locking. done, when set, is called in index
// order once a task's result is available: immediately in sequential mode,
// after the join in concurrent mode. Cancellation is checked before each
// task is started.
func (o *Orchestrator) dispatch(ctx context.Context, n int, task func(context.Context, int) error, done func(int)) error {
	if o.cfg.Dispatch == Sequential {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := task(ctx, i); err != nil {
				return err
			}
			if done != nil {
				done(i)
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return task(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if done != nil {
		for i := 0; i < n; i++ {
			done(i)
		}
	}
	return nil
}
