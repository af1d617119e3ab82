package jobclient

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"videogen/internal/domain"
)

// BatchItem is one independent request in a batch.
type BatchItem struct {
	// ID is an opaque caller key carried through to the sink.
	ID      string
	Name    string
	Request domain.GenerationRequest
	MaxWait time.Duration
}

// BatchResult pairs an item with its own outcome.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// BatchSink is invoked once per finished item, from the worker goroutine.
// A non-nil return replaces a nil run error for that item.
type BatchSink func(ctx context.Context, item BatchItem, res *Result, err error) error

// RunBatch executes items with at most concurrency jobs in flight. Results
// are returned in input order. One item's failure never stops the others.
func RunBatch(ctx context.Context, c *Client, items []BatchItem, concurrency int, sink BatchSink) []BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]BatchResult, len(items))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			res, err := c.Execute(ctx, item.Request, item.MaxWait, item.Name)
			if sink != nil {
				if serr := sink(ctx, item, res, err); err == nil {
					err = serr
				}
			}
			results[i] = BatchResult{Name: item.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
