package cache

import (
	"context"

	"github.com/Sternrassler/region-cache/pkg/region"
)

// DefaultMaxBatch is the default number of entries deleted per eviction batch.
const DefaultMaxBatch = 1000

// Engine stores cached responses and evicts them by region.
//
// Backend failures are returned as *RepositoryError. Rejected arguments are
// returned as ErrInvalidArgument before the backend is contacted.
// Implementations are safe for concurrent use.
type Engine interface {
	// FetchIfChanged looks up key and compares the stored validator with
	// clientETag. An empty clientETag means the client holds no copy.
	FetchIfChanged(ctx context.Context, key, clientETag string) (QueryResult, error)

	// Upsert stores entry under key, replacing any previous entry. The
	// region TTL is applied when it is positive.
	Upsert(ctx context.Context, key string, entry Entry, r region.Region) error

	// Remove deletes a single key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// EvictRegion removes every entry of r using DefaultMaxBatch sized batches.
	EvictRegion(ctx context.Context, r region.Region) (int64, error)

	// EvictRegionBatched removes every entry of r, deleting at most maxBatch
	// entries per backend call, and returns the number removed.
	EvictRegionBatched(ctx context.Context, r region.Region, maxBatch int) (int64, error)

	// DefaultMaxBatch returns the batch size used by EvictRegion.
	DefaultMaxBatch() int

	// Close releases backend resources. It is idempotent.
	Close() error
}
