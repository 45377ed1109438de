package admin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/region-cache/pkg/region"
)

func resetDefault(t *testing.T) {
	t.Helper()
	mu.Lock()
	instance = nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		instance = nil
		mu.Unlock()
	})
}

func TestDefault_Lifecycle(t *testing.T) {
	resetDefault(t)
	f, _, _, _ := newTestFacade(t)

	_, err := Default()
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, err, region.ErrConfiguration)

	require.NoError(t, Initialize(f))

	got, err := Default()
	require.NoError(t, err)
	require.Same(t, f, got)

	err = Initialize(f)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	require.ErrorIs(t, err, region.ErrConfiguration)
}

func TestInitialize_Nil(t *testing.T) {
	resetDefault(t)
	require.ErrorIs(t, Initialize(nil), region.ErrInvalidArgument)

	_, err := Default()
	require.ErrorIs(t, err, ErrNotInitialized)
}
