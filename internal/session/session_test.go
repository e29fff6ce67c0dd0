package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.Contains("native:v1"))
	assert.Zero(t, tr.Len())

	tr.Mark("native:v1", "exact:A_X")
	assert.True(t, tr.Contains("native:v1"))
	assert.True(t, tr.Contains("exact:A_X"))
	assert.False(t, tr.Contains("norm:a_x"))
	assert.Equal(t, 2, tr.Len())

	assert.True(t, tr.ContainsAny([]string{"norm:a_x", "native:v1"}))
	assert.False(t, tr.ContainsAny([]string{"norm:a_x"}))
	assert.False(t, tr.ContainsAny(nil))

	tr.Reset()
	assert.False(t, tr.Contains("native:v1"))
	assert.Zero(t, tr.Len())
}
