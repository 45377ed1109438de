package region

import "time"

// PassthroughID is the reserved id of the region that is never cached.
const PassthroughID = "_passthrough"

// Cacheability tells the HTTP layer whether responses of a region are stored.
type Cacheability int

const (
	// CacheabilityCached regions are served from and written to the cache.
	CacheabilityCached Cacheability = iota
	// CacheabilityPassthrough regions always reach the downstream handler.
	CacheabilityPassthrough
)

// String returns a lowercase name suitable for logs and metric labels.
func (c Cacheability) String() string {
	switch c {
	case CacheabilityCached:
		return "cached"
	case CacheabilityPassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// Region is a named group of cached URIs sharing a TTL and a key strategy.
//
// Regions are immutable values. Two regions are equal (==) when all fields
// are equal, which requires a comparable KeyStrategy implementation.
type Region struct {
	ID           string
	TTL          time.Duration
	Cacheability Cacheability
	KeyStrategy  KeyStrategy
}

// New returns a cacheable region. A zero TTL means entries never expire.
func New(id string, ttl time.Duration, keys KeyStrategy) Region {
	return Region{
		ID:           id,
		TTL:          ttl,
		Cacheability: CacheabilityCached,
		KeyStrategy:  keys,
	}
}

// Passthrough returns the region assigned to URIs no pattern matches.
func Passthrough() Region {
	return Region{
		ID:           PassthroughID,
		Cacheability: CacheabilityPassthrough,
		KeyStrategy:  NewNamespacedKeyStrategy(""),
	}
}

// IsCacheable reports whether responses of the region are stored.
func (r Region) IsCacheable() bool {
	return r.Cacheability == CacheabilityCached
}

// TTLSeconds returns the expiry applied by storage engines, in whole seconds.
//
// Zero means no expiry. Positive TTLs below one second are rounded up to one
// second so they never turn into "no expiry".
func (r Region) TTLSeconds() int64 {
	if r.TTL <= 0 {
		return 0
	}
	secs := int64(r.TTL / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Key returns the storage key of uri within the region.
func (r Region) Key(uri string) string {
	return r.keys().KeyFor(uri, r)
}

// Wildcard returns the glob pattern matching every key of the region.
func (r Region) Wildcard() string {
	return r.keys().WildcardKeyFor(r)
}

func (r Region) keys() KeyStrategy {
	if r.KeyStrategy == nil {
		return NamespacedKeyStrategy{}
	}
	return r.KeyStrategy
}
