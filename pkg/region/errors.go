package region

import (
	"errors"
	"fmt"
)

// Error taxonomy roots shared by the cache packages.
var (
	// ErrInvalidArgument marks a caller-supplied value that was rejected
	// before any backend was contacted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfiguration marks an inconsistent region set or setup sequence.
	ErrConfiguration = errors.New("configuration error")

	// ErrRegionNotFound is returned by ByID for an unknown region id.
	ErrRegionNotFound = fmt.Errorf("%w: region not found", ErrInvalidArgument)
)
