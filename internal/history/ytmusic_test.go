package history

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, w io.Writer, v any) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func listItem(title, artist, album, videoID, duration string) map[string]any {
	flexCol := func(text string) map[string]any {
		return map[string]any{
			"musicResponsiveListItemFlexColumnRenderer": map[string]any{
				"text": map[string]any{"runs": []any{map[string]any{"text": text}}},
			},
		}
	}
	item := map[string]any{
		"flexColumns": []any{flexCol(title), flexCol(artist), flexCol(album)},
	}
	if videoID != "" {
		item["playlistItemData"] = map[string]any{"videoId": videoID}
	}
	if duration != "" {
		item["fixedColumns"] = []any{map[string]any{
			"musicResponsiveListItemFixedColumnRenderer": map[string]any{
				"text": map[string]any{"runs": []any{map[string]any{"text": duration}}},
			},
		}}
	}
	return map[string]any{"musicResponsiveListItemRenderer": item}
}

func browseResponse(items ...map[string]any) map[string]any {
	contents := make([]any, len(items))
	for i, it := range items {
		contents[i] = it
	}
	return map[string]any{
		"contents": map[string]any{
			"singleColumnBrowseResultsRenderer": map[string]any{
				"tabs": []any{map[string]any{
					"musicShelfRenderer": map[string]any{"contents": contents},
				}},
			},
		},
	}
}

func TestParseHistory(t *testing.T) {
	payload := browseResponse(
		listItem("Song A", "Artist X", "Album 1", "v1", "3:45"),
		listItem("Song B", "Artist Y", "", "", "1:02:03"),
		listItem("Song C", "Artist Z", "", "v3", "bogus"),
	)

	entries := parseHistory(payload)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Title: "Song A", Artist: "Artist X", Album: "Album 1", NativeID: "v1", Duration: 225 * time.Second, Position: 0}, entries[0])
	assert.Equal(t, "Song B", entries[1].Title)
	assert.Equal(t, 1, entries[1].Position)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second, entries[1].Duration)

	// Malformed duration is a data anomaly, not an error.
	assert.Equal(t, "v3", entries[2].NativeID)
	assert.Zero(t, entries[2].Duration)
}

func TestParseHistoryOrderIsDeterministic(t *testing.T) {
	// Two sibling sections each carrying items: positions must come out
	// the same on every parse, independent of map iteration order.
	payload := map[string]any{
		"contents": map[string]any{
			"sectionA": []any{
				listItem("Song A", "Artist X", "", "v1", ""),
				listItem("Song B", "Artist Y", "", "v2", ""),
			},
			"sectionB": []any{
				listItem("Song C", "Artist Z", "", "v3", ""),
			},
		},
	}

	first := parseHistory(payload)
	require.Len(t, first, 3)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, parseHistory(payload))
	}
	assert.Equal(t, "Song A", first[0].Title)
	assert.Equal(t, "Song C", first[2].Title)
}

func TestParseHistorySkipsTitlelessRows(t *testing.T) {
	payload := browseResponse(
		listItem("", "Artist X", "", "v1", ""),
		listItem("Song B", "Artist Y", "", "v2", ""),
	)

	entries := parseHistory(payload)
	require.Len(t, entries, 1)
	assert.Equal(t, "Song B", entries[0].Title)
	assert.Equal(t, 0, entries[0].Position)
}

func TestParseHeaders(t *testing.T) {
	t.Run("json input", func(t *testing.T) {
		headers, err := ParseHeaders([]byte(`{"Cookie": "SAPISID=abc; other=1", "User-Agent": "ua"}`))
		require.NoError(t, err)
		assert.Equal(t, "SAPISID=abc; other=1", headers["cookie"])
		assert.Equal(t, "ua", headers["user-agent"])
	})

	t.Run("yaml input", func(t *testing.T) {
		headers, err := ParseHeaders([]byte("cookie: \"SAPISID=abc\"\nx-goog-authuser: \"0\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "SAPISID=abc", headers["cookie"])
	})

	t.Run("missing cookie", func(t *testing.T) {
		_, err := ParseHeaders([]byte(`{"User-Agent": "ua"}`))
		assert.Error(t, err)
	})
}

func TestCookieValue(t *testing.T) {
	cookie := "first=1; SAPISID=sid-value; __Secure-3PAPISID=fallback"
	assert.Equal(t, "sid-value", cookieValue(cookie, "SAPISID", "__Secure-3PAPISID"))
	assert.Equal(t, "fallback", cookieValue(cookie, "__Secure-3PAPISID"))
	assert.Empty(t, cookieValue(cookie, "missing"))
}

func TestYTMusicHistory(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		writeJSON(t, w, browseResponse(
			listItem("Song A", "Artist X", "", "v1", ""),
			listItem("Song B", "Artist Y", "", "v2", ""),
			listItem("Song C", "Artist Z", "", "v3", ""),
		))
	}))
	defer server.Close()

	client := NewYTMusic(map[string]string{"cookie": "SAPISID=abc"})
	client.baseURL = server.URL

	entries, err := client.History(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2, "limit bounds the feed")
	assert.Equal(t, "Song A", entries[0].Title)
	assert.Contains(t, gotAuth, "SAPISIDHASH ")
}

func TestYTMusicHistoryAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewYTMusic(map[string]string{"cookie": "SAPISID=abc"})
	client.baseURL = server.URL

	_, err := client.History(t.Context(), 5)
	require.ErrorContains(t, err, "headers likely expired")
}
