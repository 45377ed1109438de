package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/Sternrassler/region-cache/pkg/region"
)

var testKeys = region.NewNamespacedKeyStrategy("test")

func testRegion(id string, ttl time.Duration) region.Region {
	return region.New(id, ttl, testKeys)
}

func newTestRedisEngine(t *testing.T, maxBatch int) (*RedisEngine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	engine, err := NewRedisEngine(client, maxBatch, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine, mr
}

func newTestLevelDBEngine(t *testing.T, maxBatch int) *LevelDBEngine {
	t.Helper()
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	engine, err := NewLevelDBEngine(db, maxBatch, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

// engineFactories runs the shared behaviour tests against every engine.
var engineFactories = map[string]func(t *testing.T, maxBatch int) Engine{
	"redis": func(t *testing.T, maxBatch int) Engine {
		e, _ := newTestRedisEngine(t, maxBatch)
		return e
	},
	"leveldb": func(t *testing.T, maxBatch int) Engine {
		return newTestLevelDBEngine(t, maxBatch)
	},
}

func populate(t *testing.T, engine Engine, r region.Region, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		uri := fmt.Sprintf("/items/%d", i)
		entry := Entry{Payload: "body " + uri, ETag: fmt.Sprintf(`"%d"`, i), ContentType: "text/plain", Encoding: "utf-8"}
		require.NoError(t, engine.Upsert(ctx, r.Key(uri), entry, r))
	}
}

func TestEngine_FetchMissing(t *testing.T) {
	for name, newEngine := range engineFactories {
		t.Run(name, func(t *testing.T) {
			engine := newEngine(t, DefaultMaxBatch)
			ctx := context.Background()

			for _, etag := range []string{"", `"abc"`} {
				result, err := engine.FetchIfChanged(ctx, "test:r:/missing", etag)
				require.NoError(t, err)
				require.True(t, result.UpsertNeeded)
				require.Empty(t, result.Payload)
				require.Equal(t, OutcomeMiss, result.Outcome)
			}
		})
	}
}

func TestEngine_UpsertAndFetch(t *testing.T) {
	for name, newEngine := range engineFactories {
		t.Run(name, func(t *testing.T) {
			engine := newEngine(t, DefaultMaxBatch)
			ctx := context.Background()
			r := testRegion("r", time.Minute)
			key := r.Key("/a")
			entry := Entry{Payload: `{"a":1}`, ETag: `"v1"`, ContentType: "application/json; charset=utf-8", Encoding: "utf-8"}

			require.NoError(t, engine.Upsert(ctx, key, entry, r))

			// No client validator: full entry.
			result, err := engine.FetchIfChanged(ctx, key, "")
			require.NoError(t, err)
			require.False(t, result.UpsertNeeded)
			require.Equal(t, OutcomeHit, result.Outcome)
			require.Equal(t, entry, result.Entry())

			// Matching validator: not modified.
			result, err = engine.FetchIfChanged(ctx, key, `"v1"`)
			require.NoError(t, err)
			require.True(t, result.NotModified())
			require.Empty(t, result.Payload)
			require.Empty(t, result.StoredETag)

			// Stale validator: changed entry.
			result, err = engine.FetchIfChanged(ctx, key, `"v0"`)
			require.NoError(t, err)
			require.False(t, result.UpsertNeeded)
			require.Equal(t, OutcomeChanged, result.Outcome)
			require.Equal(t, `"v1"`, result.StoredETag)
			require.Equal(t, `{"a":1}`, result.Payload)
		})
	}
}

func TestEngine_UpsertOverwrites(t *testing.T) {
	for name, newEngine := range engineFactories {
		t.Run(name, func(t *testing.T) {
			engine := newEngine(t, DefaultMaxBatch)
			ctx := context.Background()
			r := testRegion("r", 0)
			key := r.Key("/a")

			require.NoError(t, engine.Upsert(ctx, key, Entry{Payload: "one", ETag: `"1"`}, r))
			require.NoError(t, engine.Upsert(ctx, key, Entry{Payload: "two", ETag: `"2"`}, r))

			result, err := engine.FetchIfChanged(ctx, key, `"1"`)
			require.NoError(t, err)
			require.Equal(t, "two", result.Payload)
			require.Equal(t, `"2"`, result.StoredETag)
		})
	}
}

func TestEngine_Remove(t *testing.T) {
	for name, newEngine := range engineFactories {
		t.Run(name, func(t *testing.T) {
			engine := newEngine(t, DefaultMaxBatch)
			ctx := context.Background()
			r := testRegion("r", 0)
			key := r.Key("/a")

			require.NoError(t, engine.Upsert(ctx, key, Entry{Payload: "x", ETag: `"x"`}, r))
			require.NoError(t, engine.Remove(ctx, key))
			require.NoError(t, engine.Remove(ctx, key))

			result, err := engine.FetchIfChanged(ctx, key, "")
			require.NoError(t, err)
			require.True(t, result.UpsertNeeded)
		})
	}
}

func TestEngine_EvictRegion(t *testing.T) {
	tests := []struct {
		name     string
		entries  int
		maxBatch int
	}{
		{name: "batch of one", entries: 120, maxBatch: 1},
		{name: "uneven batches", entries: 250, maxBatch: 7},
		{name: "single batch", entries: 250, maxBatch: DefaultMaxBatch},
		{name: "batch equals size", entries: 50, maxBatch: 50},
		{name: "empty region", entries: 0, maxBatch: 10},
	}

	for name, newEngine := range engineFactories {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				engine := newEngine(t, DefaultMaxBatch)
				ctx := context.Background()
				target := testRegion("target", time.Hour)
				sibling := testRegion("sibling", time.Hour)

				populate(t, engine, target, tt.entries)
				populate(t, engine, sibling, 5)

				removed, err := engine.EvictRegionBatched(ctx, target, tt.maxBatch)
				require.NoError(t, err)
				require.Equal(t, int64(tt.entries), removed)

				result, err := engine.FetchIfChanged(ctx, target.Key("/items/0"), "")
				require.NoError(t, err)
				require.True(t, result.UpsertNeeded)

				for i := 0; i < 5; i++ {
					result, err := engine.FetchIfChanged(ctx, sibling.Key(fmt.Sprintf("/items/%d", i)), "")
					require.NoError(t, err)
					require.False(t, result.UpsertNeeded, "sibling region entry %d was evicted", i)
				}

				// Evicting again finds nothing.
				removed, err = engine.EvictRegion(ctx, target)
				require.NoError(t, err)
				require.Zero(t, removed)
			})
		}
	}
}

func TestEngine_EvictRegionGlobCharacters(t *testing.T) {
	tests := []struct {
		name    string
		target  region.Region
		sibling region.Region
	}{
		{name: "question mark", target: testRegion("user?", 0), sibling: testRegion("users", 0)},
		{name: "star", target: testRegion("user*", 0), sibling: testRegion("users", 0)},
		{name: "brackets", target: testRegion("[ab]", 0), sibling: testRegion("a", 0)},
		{name: "backslash", target: testRegion(`a\b`, 0), sibling: testRegion("ab", 0)},
		{
			name:    "namespace",
			target:  region.New("r", 0, region.NewNamespacedKeyStrategy("n?")),
			sibling: region.New("r", 0, region.NewNamespacedKeyStrategy("nx")),
		},
	}

	for name, newEngine := range engineFactories {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				engine := newEngine(t, DefaultMaxBatch)
				ctx := context.Background()

				populate(t, engine, tt.target, 2)
				populate(t, engine, tt.sibling, 5)

				removed, err := engine.EvictRegion(ctx, tt.target)
				require.NoError(t, err)
				require.Equal(t, int64(2), removed)

				for i := 0; i < 5; i++ {
					result, err := engine.FetchIfChanged(ctx, tt.sibling.Key(fmt.Sprintf("/items/%d", i)), "")
					require.NoError(t, err)
					require.False(t, result.UpsertNeeded, "sibling region entry %d was evicted", i)
				}
			})
		}
	}
}

func TestEngine_InvalidArguments(t *testing.T) {
	for name, newEngine := range engineFactories {
		t.Run(name, func(t *testing.T) {
			engine := newEngine(t, DefaultMaxBatch)
			ctx := context.Background()
			r := testRegion("r", 0)

			_, err := engine.FetchIfChanged(ctx, "", "")
			require.ErrorIs(t, err, ErrInvalidArgument)
			require.ErrorIs(t, engine.Upsert(ctx, "", Entry{}, r), ErrInvalidArgument)
			require.ErrorIs(t, engine.Remove(ctx, ""), ErrInvalidArgument)

			for _, n := range []int{0, -1} {
				_, err := engine.EvictRegionBatched(ctx, r, n)
				require.ErrorIs(t, err, ErrInvalidArgument)
				require.False(t, IsRepositoryError(err))
			}
		})
	}
}

func TestEngine_DefaultMaxBatch(t *testing.T) {
	for name, newEngine := range engineFactories {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, 17, newEngine(t, 17).DefaultMaxBatch())
		})
	}
}

func TestEngine_CloseIsIdempotent(t *testing.T) {
	for name, newEngine := range engineFactories {
		t.Run(name, func(t *testing.T) {
			engine := newEngine(t, DefaultMaxBatch)
			require.NoError(t, engine.Close())
			require.NoError(t, engine.Close())
		})
	}
}
