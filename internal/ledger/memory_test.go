package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreIsolatesUsers(t *testing.T) {
	store := NewMemory()

	_, err := store.Record(t.Context(), "user-a", "native:v1", Record{Title: "A", Artist: "X"})
	require.NoError(t, err)

	snapA, err := store.Snapshot(t.Context(), "user-a")
	require.NoError(t, err)
	snapB, err := store.Snapshot(t.Context(), "user-b")
	require.NoError(t, err)

	assert.True(t, snapA.Contains("native:v1"))
	assert.False(t, snapB.Contains("native:v1"))
}

func TestMemoryStoreUpsert(t *testing.T) {
	store := NewMemory()

	snap, err := store.Record(t.Context(), "u", "k", Record{Timestamp: 1})
	require.NoError(t, err)
	rec, _ := snap.Get("k")
	assert.Equal(t, 1, rec.PlayCount)

	snap, err = store.Record(t.Context(), "u", "k", Record{Timestamp: 2})
	require.NoError(t, err)
	rec, _ = snap.Get("k")
	assert.Equal(t, 2, rec.PlayCount)
	assert.Equal(t, int64(2), rec.Timestamp)
}

func TestMemoryStoreSnapshotIsDetached(t *testing.T) {
	store := NewMemory()
	snap, err := store.Snapshot(t.Context(), "u")
	require.NoError(t, err)

	_, err = store.Record(t.Context(), "u", "k", Record{})
	require.NoError(t, err)

	assert.False(t, snap.Contains("k"), "earlier snapshot must not see later writes")
}
