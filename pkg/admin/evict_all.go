package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/region-cache/pkg/cache"
	"github.com/Sternrassler/region-cache/pkg/region"
)

// DefaultConcurrency is the number of regions evicted in parallel by EvictAll.
const DefaultConcurrency = 4

// RegionResult is the outcome of evicting one region.
type RegionResult struct {
	Region  string
	Removed int64
	Err     error
}

// EvictAll evicts every configured region with a bounded worker pool.
// Results are returned in declaration order. The returned error joins the
// errors of all failed regions.
func (f *Facade) EvictAll(ctx context.Context, maxBatch, concurrency int) ([]RegionResult, error) {
	if maxBatch < 1 {
		return nil, fmt.Errorf("%w: maxEntriesDeletedInOneBatch should be at least 1 but was %d", cache.ErrInvalidArgument, maxBatch)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	regions := f.regions.Regions()
	start := time.Now()
	results := make([]RegionResult, len(regions))

	queue := make(chan int, len(regions))
	for i := range regions {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < min(concurrency, len(regions)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				results[i] = f.evictOne(ctx, regions[i], maxBatch)
			}
		}()
	}
	wg.Wait()

	var errs []error
	var total int64
	for _, res := range results {
		total += res.Removed
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("region %s: %w", res.Region, res.Err))
		}
	}

	f.logger.Info().
		Int("regions", len(regions)).
		Int("failed", len(errs)).
		Int64("removed", total).
		Dur("elapsed", time.Since(start)).
		Msg("Evicted all regions")
	return results, errors.Join(errs...)
}

func (f *Facade) evictOne(ctx context.Context, r region.Region, maxBatch int) RegionResult {
	if err := ctx.Err(); err != nil {
		return RegionResult{Region: r.ID, Err: err}
	}
	removed, err := f.engine.EvictRegionBatched(ctx, r, maxBatch)
	return RegionResult{Region: r.ID, Removed: removed, Err: err}
}
