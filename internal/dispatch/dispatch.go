// Package dispatch runs one task per work unit on a bounded pool of
// goroutines and collects every result under the unit's index.
package dispatch

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Options controls a dispatch
type Options struct {
	// Workers bounds the number of concurrently running tasks.
	// Zero or negative means runtime.NumCPU().
	Workers int

	// SyncFirst runs item 0 on the calling goroutine before anything is
	// submitted to the pool. The write pipeline uses it for the header chunk.
	SyncFirst bool

	// OnResult, if set, is called after each task completes with its index.
	// Calls may come from several goroutines at once.
	OnResult func(index int)
}

// PanicError is recorded for a task that panicked
type PanicError struct {
	Value any
	Index int
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %d panicked: %v", e.Index, e.Value)
}

// TaskFunc processes item i and returns its result.
// Tasks report failure through their result; they cannot abort the pool.
type TaskFunc[T, R any] func(ctx context.Context, i int, item T) R

// Run executes fn once per item and returns the results in item order.
// Items are submitted in index order but may finish in any order; each
// result is stored under its own index. One task failing never cancels its
// siblings. Run returns only after every task has finished.
//
// There is no per-task timeout: a task that never returns holds its slot.
// ctx is handed to every task unchanged.
func Run[T, R any](ctx context.Context, items []T, opts Options, fn TaskFunc[T, R]) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	first := 0
	if opts.SyncFirst {
		results[0] = fn(ctx, 0, items[0])
		if opts.OnResult != nil {
			opts.OnResult(0)
		}
		first = 1
	}

	// errgroup without a derived context: task errors never cancel siblings
	var g errgroup.Group
	g.SetLimit(workers)

	for i := first; i < len(items); i++ {
		g.Go(func() error {
			results[i] = fn(ctx, i, items[i])
			if opts.OnResult != nil {
				opts.OnResult(i)
			}
			return nil
		})
	}

	_ = g.Wait()

	return results
}

// Safe wraps fn so that a panic becomes a *PanicError handed to onPanic,
// whose return value is used as the task's result.
func Safe[T, R any](fn TaskFunc[T, R], onPanic func(i int, err *PanicError) R) TaskFunc[T, R] {
	return func(ctx context.Context, i int, item T) (result R) {
		defer func() {
			if v := recover(); v != nil {
				result = onPanic(i, &PanicError{Index: i, Value: v})
			}
		}()
		return fn(ctx, i, item)
	}
}
