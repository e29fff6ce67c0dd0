package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and trims", "  Bohemian Rhapsody  ", "bohemian rhapsody"},
		{"strips feat dot tail", "Love Me (feat. Drake)", "love me"},
		{"strips feat without dot", "Song feat Someone", "song"},
		{"strips ft dot tail", "Track ft. Guest", "track"},
		{"strips ft tail", "Track ft Guest", "track"},
		{"strips featuring tail", "Track featuring Guest", "track"},
		{"keeps feat inside word", "Defeated", "defeated"},
		{"keeps ft inside word", "Swift Song", "swift song"},
		{"strips punctuation", "What's Up?!", "whats up"},
		{"collapses whitespace", "a   b\t c", "a b c"},
		{"empty", "", ""},
		{"punctuation only", "...---...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	in := "Some Track (feat. Other)  "
	first := Normalize(in)
	for range 10 {
		assert.Equal(t, first, Normalize(in))
	}
}

func TestCandidateKeys(t *testing.T) {
	t.Run("full identity yields three ordered keys", func(t *testing.T) {
		keys := CandidateKeys("Song A", "Artist X", "v1")
		require.Equal(t, []string{
			"native:v1",
			"exact:Song A_Artist X",
			"norm:song a_artist x",
		}, keys)
	})

	t.Run("no native id", func(t *testing.T) {
		keys := CandidateKeys("Song A", "Artist X", "")
		require.Equal(t, []string{
			"exact:Song A_Artist X",
			"norm:song a_artist x",
		}, keys)
	})

	t.Run("native id only", func(t *testing.T) {
		keys := CandidateKeys("", "", "v2")
		require.Equal(t, []string{"native:v2"}, keys)
	})

	t.Run("empty identity yields no keys", func(t *testing.T) {
		assert.Empty(t, CandidateKeys("", "", ""))
	})

	t.Run("case variants share the normalized key", func(t *testing.T) {
		a := CandidateKeys("Song A", "Artist X", "v1")
		b := CandidateKeys("song a", "artist x", "v2")
		assert.Equal(t, a[2], b[2])
		assert.NotEqual(t, a[0], b[0])
		assert.NotEqual(t, a[1], b[1])
	})

	t.Run("normalized-away title yields no norm key", func(t *testing.T) {
		keys := CandidateKeys("???", "Artist X", "")
		assert.Equal(t, []string{"exact:???_Artist X"}, keys)
	})
}
