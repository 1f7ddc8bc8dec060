// Package runner executes batches of independent tasks with a bounded number
// in flight. Results keep input order and failures stay isolated to their item.
package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// ProgressFunc is called after each item finishes, with the number of
// completed items so far and the batch total. Calls are serialized.
type ProgressFunc func(completed, total int)

// WorkerError wraps a panic recovered from a batch item so one broken task
// cannot take down the whole batch.
type WorkerError struct {
	// Index is the input position of the item that panicked.
	Index int
	// Value is the recovered panic value.
	Value any
	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

// Error returns a short description; the stack is kept for logging.
func (e *WorkerError) Error() string {
	return fmt.Sprintf("task %d panicked: %v", e.Index, e.Value)
}

// Result pairs one item's output with its failure, if any.
type Result[R any] struct {
	Value R
	Err   error
}

// Run executes fn over every item with at most limit running concurrently.
// The returned slice has one entry per input item, in input order. A failing
// or panicking item only affects its own entry. When ctx is cancelled,
// items not yet started are marked with the context error and skipped;
// items already running finish on their own terms.
//
// A limit below 1 is treated as 1, which serializes the batch.
func Run[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error), progress ProgressFunc) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}

	start := time.Now()
	total := len(items)
	sem := semaphore.NewWeighted(int64(limit))

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	for i := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < total; j++ {
				results[j].Err = fmt.Errorf("batch cancelled before task %d started: %w", j, err)
			}
			break
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer sem.Release(1)

			value, err := runItem(ctx, idx, items[idx], fn)
			results[idx] = Result[R]{Value: value, Err: err}

			mu.Lock()
			completed++
			if progress != nil {
				progress(completed, total)
			}
			mu.Unlock()
		}(i)
	}

	wg.Wait()

	succeeded := 0
	for i := range results {
		if results[i].Err == nil {
			succeeded++
		}
	}
	log.WithFields(log.Fields{
		"count":    total,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debugf("batch finished: %d succeeded, %d failed", succeeded, total-succeeded)

	return results
}

// runItem invokes fn with panic isolation for one item.
func runItem[T, R any](ctx context.Context, idx int, item T, fn func(context.Context, T) (R, error)) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			workerErr := &WorkerError{Index: idx, Value: r, Stack: debug.Stack()}
			log.WithFields(log.Fields{"error": workerErr}).Errorf("recovered panic in batch task %d:\n%s", idx, workerErr.Stack)
			err = workerErr
		}
	}()
	return fn(ctx, item)
}
