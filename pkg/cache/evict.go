package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/region-cache/pkg/region"
)

// batchFunc deletes at most one batch of region entries and returns how many
// it removed.
type batchFunc func(ctx context.Context) (int64, error)

// drain runs batches until one removes nothing and returns the sum. On error
// the count removed so far is returned with it.
func drain(ctx context.Context, batch batchFunc) (int64, error) {
	var total int64
	for {
		n, err := batch(ctx)
		if err != nil {
			return total, err
		}
		EvictionBatches.Inc()
		if n == 0 {
			return total, nil
		}
		total += n
	}
}

// evict drains a region and records metrics and logs for it.
func evict(ctx context.Context, logger zerolog.Logger, r region.Region, maxBatch int, batch batchFunc) (int64, error) {
	start := time.Now()
	removed, err := drain(ctx, batch)
	elapsed := time.Since(start)

	EvictionDuration.Observe(elapsed.Seconds())
	EvictedEntries.WithLabelValues(r.ID).Add(float64(removed))

	if err != nil {
		logger.Error().
			Err(err).
			Str("region", r.ID).
			Int64("removed", removed).
			Msg("Region eviction failed")
		return removed, repositoryError("evict", err)
	}

	logger.Info().
		Str("region", r.ID).
		Int64("removed", removed).
		Int("max_batch", maxBatch).
		Dur("elapsed", elapsed).
		Msg("Region evicted")
	return removed, nil
}

// patternCache memoizes region wildcards. Regions are compared by value, so
// equal ids under different key strategies get their own entries.
type patternCache struct {
	m sync.Map
}

func (c *patternCache) get(r region.Region) string {
	if p, ok := c.m.Load(r); ok {
		return p.(string)
	}
	p, _ := c.m.LoadOrStore(r, r.Wildcard())
	return p.(string)
}

// deleteBatchScript deletes up to ARGV[2] keys matching the glob ARGV[1] and
// returns the number deleted.
const deleteBatchScript = `
local limit = tonumber(ARGV[2])
local removed = 0
local keys = redis.call('KEYS', ARGV[1])
for i = 1, #keys do
  if removed >= limit then
    break
  end
  redis.call('DEL', keys[i])
  removed = removed + 1
end
return removed
`

// scriptEvictor runs deleteBatchScript by SHA, loading it lazily and
// reloading it once when the server has forgotten it.
type scriptEvictor struct {
	client   redis.UniversalClient
	sha      atomic.Pointer[string]
	loads    singleflight.Group
	patterns patternCache
	logger   zerolog.Logger
}

func newScriptEvictor(client redis.UniversalClient, logger zerolog.Logger) *scriptEvictor {
	return &scriptEvictor{client: client, logger: logger}
}

func (s *scriptEvictor) deleteBatch(ctx context.Context, r region.Region, maxBatch int) (int64, error) {
	pattern := s.patterns.get(r)

	sha, err := s.handle(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.client.EvalSha(ctx, sha, nil, pattern, maxBatch).Int64()
	if err == nil || !isNoScript(err) {
		return n, err
	}

	s.logger.Warn().
		Str("region", r.ID).
		Str("sha", sha).
		Msg("Eviction script missing on server, reloading")

	sha, err = s.reload(ctx, sha)
	if err != nil {
		return 0, err
	}
	return s.client.EvalSha(ctx, sha, nil, pattern, maxBatch).Int64()
}

// handle returns the cached script SHA, loading the script on first use.
func (s *scriptEvictor) handle(ctx context.Context) (string, error) {
	if sha := s.sha.Load(); sha != nil {
		return *sha, nil
	}
	return s.reload(ctx, "")
}

// reload uploads the script unless another caller already replaced stale.
// Concurrent reloads share one SCRIPT LOAD.
func (s *scriptEvictor) reload(ctx context.Context, stale string) (string, error) {
	v, err, _ := s.loads.Do("load", func() (interface{}, error) {
		if cur := s.sha.Load(); cur != nil && *cur != stale {
			return *cur, nil
		}
		sha, err := s.client.ScriptLoad(ctx, deleteBatchScript).Result()
		if err != nil {
			return "", err
		}
		ScriptLoads.Inc()
		s.sha.Store(&sha)
		s.logger.Debug().Str("sha", sha).Msg("Eviction script loaded")
		return sha, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func isNoScript(err error) bool {
	return strings.HasPrefix(err.Error(), "NOSCRIPT")
}
