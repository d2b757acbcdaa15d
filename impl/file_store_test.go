package impl

import (
	"path/filepath"
	"testing"

	"github.com/emberlink/ember/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	id, err := s.LoadNodeID()
	require.NoError(t, err)
	assert.Equal(t, state.AutoAddress, id)

	parent, distance, err := s.LoadParent()
	require.NoError(t, err)
	assert.Equal(t, state.AutoAddress, parent)
	assert.Zero(t, distance)

	_, ok, err := s.LoadRoute(9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.StoreNodeID(7))
	require.NoError(t, s.StoreParent(0, 1))
	require.NoError(t, s.StoreRoute(9, 4))

	s2, err := NewFileStore(path)
	require.NoError(t, err)

	id, _ := s2.LoadNodeID()
	assert.Equal(t, uint8(7), id)
	parent, distance, _ := s2.LoadParent()
	assert.Equal(t, uint8(0), parent)
	assert.Equal(t, uint8(1), distance)
	next, ok, _ := s2.LoadRoute(9)
	assert.True(t, ok)
	assert.Equal(t, uint8(4), next)
}

func TestFileStoreClearRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.StoreRoute(9, 4))
	require.NoError(t, s.ClearRoutes())

	routes, err := s.Routes()
	require.NoError(t, err)
	assert.Empty(t, routes)

	s2, err := NewFileStore(path)
	require.NoError(t, err)
	_, ok, _ := s2.LoadRoute(9)
	assert.False(t, ok)
}
