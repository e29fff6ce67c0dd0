package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory(t *testing.T) {
	c := NewInMemory()

	_, err := c.Get(t.Context(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(t.Context(), "k", "v"))
	got, err := c.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestFileCachePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, c.Set(t.Context(), "mbquery:abc", "225000"))
	require.NoError(t, c.Set(t.Context(), "mbquery:abc", "226000"))
	require.NoError(t, c.Set(t.Context(), "mbquery:def", "-1"))
	c.Close()

	reopened, err := NewFile(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(t.Context(), "mbquery:abc")
	require.NoError(t, err)
	assert.Equal(t, "226000", got, "last write wins")

	got, err = reopened.Get(t.Context(), "mbquery:def")
	require.NoError(t, err)
	assert.Equal(t, "-1", got)

	_, err = reopened.Get(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
