package cache

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/region-cache/pkg/region"
)

// ErrInvalidArgument is returned when an argument is rejected before any
// backend call is made.
var ErrInvalidArgument = region.ErrInvalidArgument

// RepositoryError wraps a storage backend failure.
type RepositoryError struct {
	// Op is the engine operation that failed ("fetch", "upsert", "remove", "evict").
	Op string

	// Err is the underlying backend error.
	Err error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("cache repository %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// IsRepositoryError reports whether err is or wraps a *RepositoryError.
func IsRepositoryError(err error) bool {
	var re *RepositoryError
	return errors.As(err, &re)
}

// repositoryError records the failure and wraps err.
func repositoryError(op string, err error) error {
	CacheErrors.WithLabelValues(op).Inc()
	return &RepositoryError{Op: op, Err: err}
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key should not be empty", ErrInvalidArgument)
	}
	return nil
}

func validateBatch(maxBatch int) error {
	if maxBatch < 1 {
		return fmt.Errorf("%w: maxEntriesDeletedInOneBatch should be at least 1 but was %d", ErrInvalidArgument, maxBatch)
	}
	return nil
}
