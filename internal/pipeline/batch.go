package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchItem reports the outcome of one request within a batch.
type BatchItem struct {
	Index  int
	Result Result
	Err    error
}

// RunBatch fans out one Run per request and joins on an all-or-nothing
// barrier: the returned error is the first item failure, but every item runs
// to its own terminal state regardless (no sibling cancellation), so partial
// success stays recorded even when the batch as a whole reports failure.
func (o *Orchestrator) RunBatch(ctx context.Context, reqs []Request) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := o.Run(ctx, req)
			items[i] = BatchItem{Index: i, Result: res, Err: err}
			return err
		})
	}
	err := g.Wait()
	return items, err
}
