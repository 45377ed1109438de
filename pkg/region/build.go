package region

import (
	"fmt"
	"strings"
	"time"
)

// Definition is the declarative form of a region as it appears in
// configuration files.
type Definition struct {
	ID      string
	TTL     time.Duration
	Pattern string
}

// Build validates definitions and returns a resolver using a
// NamespacedKeyStrategy for every region.
//
// Ids are trimmed before validation. An empty definition list is a
// configuration error unless allowEmpty is set, in which case every URI
// resolves to the passthrough region.
func Build(namespace string, defs []Definition, allowEmpty bool) (*Resolver, error) {
	if len(defs) == 0 && !allowEmpty {
		return nil, fmt.Errorf("%w: no regions configured", ErrConfiguration)
	}

	keys := NewNamespacedKeyStrategy(namespace)
	bindings := make([]Binding, 0, len(defs))
	for i, def := range defs {
		id := strings.TrimSpace(def.ID)
		if err := validateID(id); err != nil {
			return nil, fmt.Errorf("region #%d: %w", i, err)
		}
		if def.TTL < 0 {
			return nil, fmt.Errorf("region '%s': %w: ttl should not be negative", id, ErrConfiguration)
		}
		m, err := CompileMatcher(def.Pattern)
		if err != nil {
			return nil, fmt.Errorf("region '%s': %w", id, err)
		}
		bindings = append(bindings, Binding{Matcher: m, Region: New(id, def.TTL, keys)})
	}
	return NewResolver(bindings)
}

func validateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: Region id should not be empty", ErrConfiguration)
	case strings.Contains(id, separator):
		return fmt.Errorf("%w: Region id should not contain colon but found in '%s'", ErrConfiguration, id)
	case strings.HasPrefix(id, "_"):
		return fmt.Errorf("%w: Region id should not start with underscore but found '%s'", ErrConfiguration, id)
	}
	return nil
}
