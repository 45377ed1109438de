// Package cache stores HTTP responses per region and evicts whole regions
// in bounded batches.
//
// Two engines implement the Engine interface:
//
//   - RedisEngine keeps each entry in a Redis hash with the fields payload,
//     etag, contentType and encoding. Region eviction runs a Lua script by
//     SHA that deletes a bounded number of keys per call.
//   - LevelDBEngine keeps entries in an embedded LevelDB database for single
//     node deployments.
//
// # Conditional Fetch
//
// FetchIfChanged returns one of four outcomes:
//
//	result, err := engine.FetchIfChanged(ctx, key, r.Header.Get("If-None-Match"))
//	switch {
//	case result.UpsertNeeded:
//		// miss: regenerate the response and Upsert it
//	case result.NotModified():
//		// client copy is current: answer 304
//	default:
//		// serve result.Payload with result.StoredETag
//	}
//
// With a client validator, the Redis engine reads only the etag field
// before deciding whether the payload has to be transferred.
//
// # Region Eviction
//
//	removed, err := engine.EvictRegionBatched(ctx, r, 500)
//
// Batches run until one deletes nothing. Entries written concurrently with
// an eviction may or may not be removed. When Redis reports NOSCRIPT the
// script is reloaded and the batch retried once.
//
// # Errors
//
// Backend failures are returned as *RepositoryError so callers can tell
// them apart from ErrInvalidArgument, which is returned before any backend
// call is made.
//
// # Metrics
//
//   - cache_fetch_total{outcome} - Conditional fetches
//   - cache_upserts_total - Entries written
//   - cache_errors_total{operation} - Backend failures
//   - cache_evicted_entries_total{region} - Entries removed by eviction
//   - cache_eviction_batches_total - Eviction batches
//   - cache_eviction_duration_seconds - Region eviction duration
//   - cache_script_loads_total - Eviction script uploads
package cache
