// Package taskpool runs a list of tasks with a fixed cap on how many are in flight
package taskpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	perr "syncengine/internal/platform/errors"

	"golang.org/x/sync/semaphore"
)

// Task is one unit of work
type Task func(ctx context.Context) error

// Run executes tasks with at most limit running at once and returns one
// result per task, index aligned with the input
//
// Tasks start in list order as slots free up. Every task settles exactly once;
// a failure or panic in one task never stops the others. Once ctx is done, tasks
// that have not started yet settle with ctx.Err() without running.
func Run(ctx context.Context, limit int, tasks []Task) []error {
	out := make([]error, len(tasks))
	if len(tasks) == 0 {
		return out
	}
	if limit < 1 {
		limit = 1
	}

	sem := semaphore.NewWeighted(int64(limit))
	var wg sync.WaitGroup

	for i, t := range tasks {
		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			for j := i; j < len(tasks); j++ {
				out[j] = err
			}
			break
		}
		wg.Add(1)
		go func(i int, t Task) {
			defer wg.Done()
			defer sem.Release(1)
			out[i] = call(ctx, t)
		}(i, t)
	}

	wg.Wait()
	return out
}

// RunAll is Run followed by errors.Join over the failed results
func RunAll(ctx context.Context, limit int, tasks []Task) error {
	return errors.Join(Run(ctx, limit, tasks)...)
}

// Each builds one task per item and runs them with Run
func Each[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) []error {
	tasks := make([]Task, len(items))
	for i := range items {
		item := items[i]
		tasks[i] = func(ctx context.Context) error { return fn(ctx, item) }
	}
	return Run(ctx, limit, tasks)
}

// Chunk splits items into consecutive slices of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}

func call(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = perr.PanicErrf("taskpool: task panicked: %v", r)
		}
	}()
	if t == nil {
		return fmt.Errorf("taskpool: nil task")
	}
	return t(ctx)
}
