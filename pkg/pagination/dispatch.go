package pagination

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Outcome is the result of one dispatched task.
type Outcome[In, Out any] struct {
	Input  In
	Output Out
	Err    error
}

// TaskFunc processes a single dispatched item.
type TaskFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Dispatch runs fn over items using at most workers goroutines and blocks until every
// item has been processed. Outcomes are returned in completion order, one per item.
// A failing or panicking task is recorded in its Outcome and does not stop the others.
func Dispatch[In, Out any](ctx context.Context, items []In, workers int, fn TaskFunc[In, Out]) []Outcome[In, Out] {
	if len(items) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	queue := make(chan In, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome[In, Out], 0, len(items))
		wg       sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processed := 0
			for item := range queue {
				dispatchInflight.Inc()
				out, err := runTask(ctx, fn, item)
				dispatchInflight.Dec()

				mu.Lock()
				outcomes = append(outcomes, Outcome[In, Out]{Input: item, Output: out, Err: err})
				mu.Unlock()
				processed++
			}
			log.Debug().
				Int("worker_id", workerID).
				Int("tasks_processed", processed).
				Msg("Worker completed")
		}(i)
	}

	wg.Wait()
	return outcomes
}

// runTask converts a panic in fn into an error for that item only.
func runTask[In, Out any](ctx context.Context, fn TaskFunc[In, Out], in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx, in)
}
