package admin

import (
	"fmt"
	"sync"

	"github.com/Sternrassler/region-cache/pkg/region"
)

var (
	// ErrAlreadyInitialized is returned by a second call to Initialize.
	ErrAlreadyInitialized = fmt.Errorf("%w: admin facade already initialized", region.ErrConfiguration)

	// ErrNotInitialized is returned by Default before Initialize.
	ErrNotInitialized = fmt.Errorf("%w: admin facade not initialized", region.ErrConfiguration)
)

var (
	mu       sync.Mutex
	instance *Facade
)

// Initialize publishes f as the process-wide facade. It succeeds once.
func Initialize(f *Facade) error {
	if f == nil {
		return fmt.Errorf("%w: facade is nil", region.ErrInvalidArgument)
	}
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return ErrAlreadyInitialized
	}
	instance = f
	return nil
}

// Default returns the facade published by Initialize.
func Default() (*Facade, error) {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		return nil, ErrNotInitialized
	}
	return instance, nil
}
