package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Sternrassler/region-cache/pkg/region"
)

// levelRecord is the gob encoded value stored under each key.
type levelRecord struct {
	Entry     Entry
	ExpiresAt int64 // unix nanoseconds, 0 for no expiry
}

// LevelDBEngine stores entries in an embedded LevelDB database. Expiry is
// enforced on read: expired records are reported as misses and deleted
// unless a newer record replaced them meanwhile.
type LevelDBEngine struct {
	db        *leveldb.DB
	maxBatch  int
	logger    zerolog.Logger
	now       func() time.Time
	closeOnce sync.Once

	// mu orders single-key writes against the delete of an expired record.
	mu sync.Mutex
}

// OpenLevelDB opens or creates the database at path.
func OpenLevelDB(path string, maxBatch int, logger zerolog.Logger) (*LevelDBEngine, error) {
	if err := validateBatch(maxBatch); err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return NewLevelDBEngine(db, maxBatch, logger)
}

// NewLevelDBEngine wraps an open database. The engine takes ownership of db.
func NewLevelDBEngine(db *leveldb.DB, maxBatch int, logger zerolog.Logger) (*LevelDBEngine, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: leveldb handle cannot be nil", ErrInvalidArgument)
	}
	if err := validateBatch(maxBatch); err != nil {
		return nil, err
	}
	return &LevelDBEngine{
		db:       db,
		maxBatch: maxBatch,
		logger:   logger.With().Str("engine", "leveldb").Logger(),
		now:      time.Now,
	}, nil
}

// FetchIfChanged implements Engine.
func (e *LevelDBEngine) FetchIfChanged(ctx context.Context, key, clientETag string) (QueryResult, error) {
	if err := validateKey(key); err != nil {
		return QueryResult{}, err
	}

	rec, found, err := e.get(key)
	if err != nil {
		return QueryResult{}, repositoryError("fetch", err)
	}

	var result QueryResult
	switch {
	case !found:
		result = missResult()
	case clientETag == "":
		result = rec.Entry.result(OutcomeHit)
	case rec.Entry.ETag == clientETag:
		result = notModifiedResult()
	default:
		result = rec.Entry.result(OutcomeChanged)
	}
	FetchOutcomes.WithLabelValues(result.Outcome.String()).Inc()
	return result, nil
}

func (e *LevelDBEngine) get(key string) (levelRecord, bool, error) {
	b, err := e.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return levelRecord{}, false, nil
	}
	if err != nil {
		return levelRecord{}, false, fmt.Errorf("leveldb get: %w", err)
	}

	var rec levelRecord
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&rec); err != nil {
		return levelRecord{}, false, fmt.Errorf("decode record: %w", err)
	}

	if rec.ExpiresAt != 0 && e.now().UnixNano() >= rec.ExpiresAt {
		if err := e.deleteExpired(key, b); err != nil {
			e.logger.Debug().Err(err).Str("key", key).Msg("Failed to delete expired record")
		}
		return levelRecord{}, false, nil
	}
	return rec, true, nil
}

// deleteExpired deletes key only if it still holds the expired value seen.
func (e *LevelDBEngine) deleteExpired(key string, seen []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !bytes.Equal(cur, seen) {
		return nil
	}
	return e.db.Delete([]byte(key), nil)
}

// Upsert implements Engine.
func (e *LevelDBEngine) Upsert(ctx context.Context, key string, entry Entry, r region.Region) error {
	if err := validateKey(key); err != nil {
		return err
	}

	rec := levelRecord{Entry: entry}
	if ttl := r.TTLSeconds(); ttl > 0 {
		rec.ExpiresAt = e.now().Add(time.Duration(ttl) * time.Second).UnixNano()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return repositoryError("upsert", fmt.Errorf("encode record: %w", err))
	}
	e.mu.Lock()
	err := e.db.Put([]byte(key), buf.Bytes(), nil)
	e.mu.Unlock()
	if err != nil {
		return repositoryError("upsert", fmt.Errorf("leveldb put: %w", err))
	}

	Upserts.Inc()
	return nil
}

// Remove implements Engine.
func (e *LevelDBEngine) Remove(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	e.mu.Lock()
	err := e.db.Delete([]byte(key), nil)
	e.mu.Unlock()
	if err != nil {
		return repositoryError("remove", fmt.Errorf("leveldb delete: %w", err))
	}
	return nil
}

// EvictRegion implements Engine.
func (e *LevelDBEngine) EvictRegion(ctx context.Context, r region.Region) (int64, error) {
	return e.EvictRegionBatched(ctx, r, e.maxBatch)
}

// EvictRegionBatched implements Engine. Keys are collected with an iterator
// over the region's literal key prefix and deleted in leveldb batches of at
// most maxBatch keys.
func (e *LevelDBEngine) EvictRegionBatched(ctx context.Context, r region.Region, maxBatch int) (int64, error) {
	if err := validateBatch(maxBatch); err != nil {
		return 0, err
	}

	prefix := []byte(r.Key(""))
	return evict(ctx, e.logger, r, maxBatch, func(ctx context.Context) (int64, error) {
		return e.deleteBatch(ctx, prefix, maxBatch)
	})
}

func (e *LevelDBEngine) deleteBatch(ctx context.Context, prefix []byte, maxBatch int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	it := e.db.NewIterator(util.BytesPrefix(prefix), nil)
	batch := new(leveldb.Batch)
	for batch.Len() < maxBatch && it.Next() {
		batch.Delete(bytes.Clone(it.Key()))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("leveldb iterate: %w", err)
	}

	if batch.Len() == 0 {
		return 0, nil
	}
	if err := e.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("leveldb write: %w", err)
	}
	return int64(batch.Len()), nil
}

// DefaultMaxBatch implements Engine.
func (e *LevelDBEngine) DefaultMaxBatch() int {
	return e.maxBatch
}

// Close closes the database. Failures are logged, never returned.
func (e *LevelDBEngine) Close() error {
	e.closeOnce.Do(func() {
		if err := e.db.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to close leveldb")
		}
	})
	return nil
}
