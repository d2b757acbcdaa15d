package impl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.sqlite")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.StoreNodeID(7))
	require.NoError(t, s.StoreParent(0, 1))
	require.NoError(t, s.StoreRoute(9, 4))
	require.NoError(t, s.StoreRoute(9, 6)) // overwrite

	id, err := s.LoadNodeID()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), id)

	parent, distance, err := s.LoadParent()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), parent)
	assert.Equal(t, uint8(1), distance)

	next, ok, err := s.LoadRoute(9)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint8(6), next)

	routes, err := s.Routes()
	require.NoError(t, err)
	assert.Len(t, routes, 1)

	require.NoError(t, s.ClearRoutes())
	_, ok, err = s.LoadRoute(9)
	require.NoError(t, err)
	assert.False(t, ok)
}
