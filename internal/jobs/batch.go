package jobs

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/docqa/internal/logger"
)

const (
	// DefaultBatchSize is the number of items sent in one embedding request
	DefaultBatchSize = 64
	// DefaultConcurrency is the number of batches in flight at once
	DefaultConcurrency = 4
)

// Batch is a half-open range [Start, End) of item indexes.
type Batch struct {
	Index int
	Start int
	End   int
}

// BatchRunner processes index ranges with bounded concurrency and retries each batch.
type BatchRunner struct {
	batchSize   int
	concurrency int
	retry       RetryPolicy
}

// NewBatchRunner creates a BatchRunner. Non-positive values fall back to defaults.
func NewBatchRunner(batchSize, concurrency int, retry RetryPolicy) *BatchRunner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &BatchRunner{
		batchSize:   batchSize,
		concurrency: concurrency,
		retry:       retry,
	}
}

// Batches splits n items into consecutive batches.
func (r *BatchRunner) Batches(n int) []Batch {
	batches := make([]Batch, 0, (n+r.batchSize-1)/r.batchSize)
	for start := 0; start < n; start += r.batchSize {
		end := start + r.batchSize
		if end > n {
			end = n
		}
		batches = append(batches, Batch{Index: len(batches), Start: start, End: end})
	}
	return batches
}

// Run calls fn once per batch of n items. fn must only write results for its
// own range. The first batch that still fails after retries cancels the rest.
func (r *BatchRunner) Run(ctx context.Context, n int, fn func(ctx context.Context, b Batch) error) error {
	batches := r.Batches(n)
	if len(batches) == 0 {
		return nil
	}

	logger.FromContext(ctx).Debug("processing batches",
		zap.Int("items", n),
		zap.Int("batches", len(batches)),
		zap.Int("concurrency", r.concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, b := range batches {
		g.Go(func() error {
			return r.retry.Do(gctx, "batch", func(ctx context.Context) error {
				return fn(ctx, b)
			})
		})
	}

	return g.Wait()
}
