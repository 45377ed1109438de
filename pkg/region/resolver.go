package region

import (
	"fmt"
	"strings"
)

// Binding associates a URI matcher with the region it resolves to.
type Binding struct {
	Matcher Matcher
	Region  Region
}

// Resolver maps URIs to regions. Bindings are tried in declaration order and
// the first match wins; unmatched URIs resolve to the passthrough region.
//
// A Resolver is read-only after construction and safe for concurrent use.
type Resolver struct {
	bindings    []Binding
	byID        map[string]Region
	passthrough Region
}

// NewResolver builds a resolver from ordered bindings.
//
// Region ids must be unique and must not collide with PassthroughID.
func NewResolver(bindings []Binding) (*Resolver, error) {
	r := &Resolver{
		bindings:    make([]Binding, 0, len(bindings)),
		byID:        make(map[string]Region, len(bindings)),
		passthrough: Passthrough(),
	}
	for _, b := range bindings {
		if b.Region.ID == PassthroughID {
			return nil, fmt.Errorf("%w: region id '%s' is reserved", ErrConfiguration, PassthroughID)
		}
		if _, dup := r.byID[b.Region.ID]; dup {
			return nil, fmt.Errorf("%w: Regions should have unique names but found duplicated region with name '%s'", ErrConfiguration, b.Region.ID)
		}
		r.byID[b.Region.ID] = b.Region
		r.bindings = append(r.bindings, b)
	}
	return r, nil
}

// Resolve returns the region of the first binding matching path, or the
// passthrough region.
func (r *Resolver) Resolve(path string) Region {
	for _, b := range r.bindings {
		if b.Matcher.Match(path) {
			return b.Region
		}
	}
	return r.passthrough
}

// Lookup returns the region registered under id. The passthrough region is
// not registered and is never returned.
func (r *Resolver) Lookup(id string) (Region, bool) {
	reg, ok := r.byID[id]
	return reg, ok
}

// ByID is like Lookup but rejects blank ids with ErrInvalidArgument and
// unknown ids with ErrRegionNotFound.
func (r *Resolver) ByID(id string) (Region, error) {
	if strings.TrimSpace(id) == "" {
		return Region{}, fmt.Errorf("%w: Region id should be provided", ErrInvalidArgument)
	}
	reg, ok := r.byID[id]
	if !ok {
		return Region{}, fmt.Errorf("%w: '%s'", ErrRegionNotFound, id)
	}
	return reg, nil
}

// Regions returns the configured regions in declaration order.
func (r *Resolver) Regions() []Region {
	out := make([]Region, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b.Region)
	}
	return out
}

// Len returns the number of configured regions.
func (r *Resolver) Len() int {
	return len(r.bindings)
}
