// Package admin exposes cache administration: region eviction, single
// entry removal and a process-wide facade for tooling.
package admin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/region-cache/pkg/cache"
	"github.com/Sternrassler/region-cache/pkg/region"
)

// RegionLookup finds configured regions by id.
type RegionLookup interface {
	ByID(id string) (region.Region, error)
	Regions() []region.Region
}

// Facade evicts cache content by region id.
type Facade struct {
	engine  cache.Engine
	regions RegionLookup
	logger  zerolog.Logger
}

// New creates a facade over engine and regions.
func New(engine cache.Engine, regions RegionLookup, logger zerolog.Logger) (*Facade, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine is required", cache.ErrInvalidArgument)
	}
	if regions == nil {
		return nil, fmt.Errorf("%w: region lookup is required", cache.ErrInvalidArgument)
	}
	return &Facade{
		engine:  engine,
		regions: regions,
		logger:  logger.With().Str("component", "admin").Logger(),
	}, nil
}

// EvictRegion removes every entry of the region using the engine's default
// batch size.
func (f *Facade) EvictRegion(ctx context.Context, id string) (int64, error) {
	return f.EvictRegionBatched(ctx, id, f.engine.DefaultMaxBatch())
}

// EvictRegionBatched removes every entry of the region, deleting at most
// maxBatch entries per backend call. Unknown or blank ids and batch sizes
// below 1 fail with cache.ErrInvalidArgument.
func (f *Facade) EvictRegionBatched(ctx context.Context, id string, maxBatch int) (int64, error) {
	if maxBatch < 1 {
		return 0, fmt.Errorf("%w: maxEntriesDeletedInOneBatch should be at least 1 but was %d", cache.ErrInvalidArgument, maxBatch)
	}
	r, err := f.regions.ByID(id)
	if err != nil {
		return 0, err
	}

	removed, err := f.engine.EvictRegionBatched(ctx, r, maxBatch)
	if err != nil {
		return removed, err
	}

	f.logger.Debug().
		Str("region", id).
		Int64("removed", removed).
		Int("max_batch", maxBatch).
		Msg("Evicted region")
	return removed, nil
}

// Remove deletes the entry cached for uri in the region.
func (f *Facade) Remove(ctx context.Context, id, uri string) error {
	if uri == "" {
		return fmt.Errorf("%w: uri should not be empty", cache.ErrInvalidArgument)
	}
	r, err := f.regions.ByID(id)
	if err != nil {
		return err
	}
	return f.engine.Remove(ctx, r.Key(uri))
}

// DefaultMaxBatch returns the batch size used by EvictRegion.
func (f *Facade) DefaultMaxBatch() int {
	return f.engine.DefaultMaxBatch()
}
