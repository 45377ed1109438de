package region

import "strings"

// separator joins key components. Region ids never contain it.
const separator = ":"

// KeyStrategy maps a URI within a region to a storage key, and a region to a
// Redis glob pattern covering all of its keys and no others.
//
// Regions are used as map keys, so implementations must be comparable.
type KeyStrategy interface {
	KeyFor(uri string, r Region) string
	WildcardKeyFor(r Region) string
}

// NamespacedKeyStrategy builds keys of the form "namespace:regionId:uri" and
// wildcards of the form "namespace:regionId:*".
//
// Two strategies with the same namespace are equal.
type NamespacedKeyStrategy struct {
	namespace string
}

// NewNamespacedKeyStrategy returns a strategy for the given namespace. The
// empty namespace is allowed and yields keys starting with a separator.
func NewNamespacedKeyStrategy(namespace string) NamespacedKeyStrategy {
	return NamespacedKeyStrategy{namespace: namespace}
}

// Namespace returns the configured namespace.
func (s NamespacedKeyStrategy) Namespace() string {
	return s.namespace
}

// KeyFor returns "namespace:regionId:uri".
func (s NamespacedKeyStrategy) KeyFor(uri string, r Region) string {
	return strings.Join([]string{s.namespace, r.ID, uri}, separator)
}

// WildcardKeyFor returns "namespace:regionId:*". Glob metacharacters in the
// namespace and id are escaped, so region "user?" never matches "users".
func (s NamespacedKeyStrategy) WildcardKeyFor(r Region) string {
	return strings.Join([]string{EscapeGlob(s.namespace), EscapeGlob(r.ID), "*"}, separator)
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// EscapeGlob quotes the characters Redis treats specially in KEYS and SCAN
// patterns.
func EscapeGlob(s string) string {
	return globEscaper.Replace(s)
}
