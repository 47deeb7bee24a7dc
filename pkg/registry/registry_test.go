package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertConflict(t *testing.T) {
	r := New()
	require.NoError(t, r.Insert("a", &Entry{ID: "a"}))
	err := r.Insert("a", &Entry{ID: "a"})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestGetRemoveList(t *testing.T) {
	r := New()
	require.NoError(t, r.Insert("b", &Entry{ID: "b"}))
	require.NoError(t, r.Insert("a", &Entry{ID: "a"}))

	entry, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", entry.ID)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	removed, ok := r.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", removed.ID)

	_, ok = r.Get("a")
	assert.False(t, ok)
}

func TestRemoveMissing(t *testing.T) {
	r := New()
	_, ok := r.Remove("nope")
	assert.False(t, ok)
}
