package ingest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds parallel document ingests.
const DefaultBatchConcurrency = 4

// BatchResult aggregates a multi-document ingest. One document's
// failure never aborts the rest; its error is recorded by source.
type BatchResult struct {
	Succeeded int
	Failed    int
	Reports   []*Report
	Errors    map[string]error
}

// IngestBatch processes the requests with bounded concurrency. Only
// context cancellation stops the batch early.
func (p *Pipeline) IngestBatch(ctx context.Context, reqs []Request, concurrency int) *BatchResult {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	result := &BatchResult{Errors: make(map[string]error)}
	var mu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(concurrency)
	for _, req := range reqs {
		if ctx.Err() != nil {
			break
		}
		req := req
		g.Go(func() error {
			report, err := p.Ingest(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors[req.Source] = err
				return nil
			}
			result.Succeeded++
			result.Reports = append(result.Reports, report)
			return nil
		})
	}
	_ = g.Wait()
	return result
}
