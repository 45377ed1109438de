// Package region resolves request URIs to cache regions and derives the
// storage keys used for them.
//
// A region groups URIs that share a TTL. Regions are declared with a URI
// pattern and resolved in declaration order:
//
//	resolver, err := region.Build("shop", []region.Definition{
//		{ID: "bestsellers", TTL: time.Hour, Pattern: "/api/v1/bestsellers/{D}"},
//		{ID: "users", Pattern: "/api/v1/users/{S}"},
//	}, false)
//
//	r := resolver.Resolve("/api/v1/bestsellers/7") // bestsellers
//	key := r.Key("/api/v1/bestsellers/7")           // shop:bestsellers:/api/v1/bestsellers/7
//
// URIs no pattern matches resolve to the passthrough region, which is never
// cached.
package region
