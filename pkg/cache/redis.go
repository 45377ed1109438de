package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/region-cache/pkg/region"
)

// RedisEngine stores entries as Redis hashes with the fields payload, etag,
// contentType and encoding.
type RedisEngine struct {
	client    redis.UniversalClient
	evictor   *scriptEvictor
	maxBatch  int
	logger    zerolog.Logger
	closeOnce sync.Once
}

// NewRedisEngine creates an engine on top of client. maxBatch is the batch
// size used by EvictRegion and must be at least 1.
func NewRedisEngine(client redis.UniversalClient, maxBatch int, logger zerolog.Logger) (*RedisEngine, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client cannot be nil", ErrInvalidArgument)
	}
	if err := validateBatch(maxBatch); err != nil {
		return nil, err
	}

	logger = logger.With().Str("engine", "redis").Logger()
	return &RedisEngine{
		client:   client,
		evictor:  newScriptEvictor(client, logger),
		maxBatch: maxBatch,
		logger:   logger,
	}, nil
}

// FetchIfChanged implements Engine.
//
// Without a client validator the whole hash is read. With one, only the etag
// field is read first and the payload is fetched only when it differs.
func (e *RedisEngine) FetchIfChanged(ctx context.Context, key, clientETag string) (QueryResult, error) {
	if err := validateKey(key); err != nil {
		return QueryResult{}, err
	}

	result, err := e.fetchIfChanged(ctx, key, clientETag)
	if err != nil {
		return QueryResult{}, err
	}
	FetchOutcomes.WithLabelValues(result.Outcome.String()).Inc()
	return result, nil
}

func (e *RedisEngine) fetchIfChanged(ctx context.Context, key, clientETag string) (QueryResult, error) {
	if clientETag == "" {
		return e.fetchEntry(ctx, key, OutcomeHit)
	}

	stored, err := e.client.HGet(ctx, key, FieldETag).Result()
	if errors.Is(err, redis.Nil) {
		return missResult(), nil
	}
	if err != nil {
		return QueryResult{}, repositoryError("fetch", fmt.Errorf("redis hget: %w", err))
	}
	if stored == clientETag {
		return notModifiedResult(), nil
	}

	// Validator changed, read the full entry.
	return e.fetchEntry(ctx, key, OutcomeChanged)
}

func (e *RedisEngine) fetchEntry(ctx context.Context, key string, outcome Outcome) (QueryResult, error) {
	fields, err := e.client.HGetAll(ctx, key).Result()
	if err != nil {
		return QueryResult{}, repositoryError("fetch", fmt.Errorf("redis hgetall: %w", err))
	}
	if len(fields) == 0 {
		return missResult(), nil
	}
	return entryFromFields(fields).result(outcome), nil
}

// Upsert implements Engine. With a positive TTL the write and the expiry are
// applied in one MULTI/EXEC transaction.
func (e *RedisEngine) Upsert(ctx context.Context, key string, entry Entry, r region.Region) error {
	if err := validateKey(key); err != nil {
		return err
	}

	ttl := r.TTLSeconds()
	var err error
	if ttl == 0 {
		err = e.client.HSet(ctx, key, entry.fields()...).Err()
	} else {
		_, err = e.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, entry.fields()...)
			pipe.Expire(ctx, key, time.Duration(ttl)*time.Second)
			return nil
		})
	}
	if err != nil {
		return repositoryError("upsert", fmt.Errorf("redis hset: %w", err))
	}

	Upserts.Inc()
	return nil
}

// Remove implements Engine.
func (e *RedisEngine) Remove(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := e.client.Del(ctx, key).Err(); err != nil {
		return repositoryError("remove", fmt.Errorf("redis del: %w", err))
	}
	return nil
}

// EvictRegion implements Engine.
func (e *RedisEngine) EvictRegion(ctx context.Context, r region.Region) (int64, error) {
	return e.EvictRegionBatched(ctx, r, e.maxBatch)
}

// EvictRegionBatched implements Engine. Each batch is one EVALSHA of a Lua
// script that deletes up to maxBatch keys matching the region wildcard.
// Batches run until one deletes nothing.
func (e *RedisEngine) EvictRegionBatched(ctx context.Context, r region.Region, maxBatch int) (int64, error) {
	if err := validateBatch(maxBatch); err != nil {
		return 0, err
	}

	return evict(ctx, e.logger, r, maxBatch, func(ctx context.Context) (int64, error) {
		return e.evictor.deleteBatch(ctx, r, maxBatch)
	})
}

// DefaultMaxBatch implements Engine.
func (e *RedisEngine) DefaultMaxBatch() int {
	return e.maxBatch
}

// Close releases the connection pool. Failures are logged, never returned.
func (e *RedisEngine) Close() error {
	e.closeOnce.Do(func() {
		if err := e.client.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	})
	return nil
}
