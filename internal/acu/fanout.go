package acu

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultFanoutLimit bounds how many accurev processes a multi-command
// build spawns at once when the caller does not configure a limit.
const DefaultFanoutLimit = 8

// ProgressFunc is invoked once per completed sub-call of a multi-command
// build with a strictly increasing completion count. Invocation order
// follows completion order, not submission order.
type ProgressFunc func(done int)

// fanout runs fn once per item with at most limit concurrent calls
// (limit <= 0 means unbounded) and waits for all of them. The returned
// error is the first sub-call failure; later sub-calls still run to
// completion so that their appended records are retained.
func fanout[T any](ctx context.Context, limit int, items []T, progress ProgressFunc, fn func(context.Context, T) error) error {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	var mu sync.Mutex
	done := 0

	for _, item := range items {
		g.Go(func() error {
			err := fn(ctx, item)
			if progress != nil {
				mu.Lock()
				done++
				progress(done)
				mu.Unlock()
			}
			return err
		})
	}

	return g.Wait()
}
