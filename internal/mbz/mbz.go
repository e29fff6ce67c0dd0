// Package mbz fills in track durations the history feed does not carry,
// using MusicBrainz recording searches. Results (including misses) are
// cached so a track is looked up at most once per installation.
package mbz

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cterence/ytmusic-scrobbler/internal/cache"
	"github.com/michiwend/gomusicbrainz"
)

// noLength is cached when MusicBrainz has no recording for a query, so the
// miss is not retried on every pass.
const noLength = -1

const lookupDelay = 200 * time.Millisecond

type Enricher struct {
	mb    *gomusicbrainz.WS2Client
	cache cache.Cache
}

func New(c cache.Cache) (*Enricher, error) {
	mb, err := gomusicbrainz.NewWS2Client(
		"https://musicbrainz.org",
		"ytmusic-scrobbler",
		"1.0",
		"https://github.com/cterence/ytmusic-scrobbler",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create MusicBrainz client: %w", err)
	}
	return &Enricher{mb: mb, cache: c}, nil
}

// TrackDuration returns the recording length for the given play, or zero
// when MusicBrainz does not know the track. Lookup failures after retries
// are returned to the caller, who treats the duration as best-effort.
func (e *Enricher) TrackDuration(ctx context.Context, artist, title string) (time.Duration, error) {
	query := fmt.Sprintf(`artist:"%s" AND recording:"%s"`, artist, title)
	cacheKey := fmt.Sprintf("mbquery:%x", sha256.Sum256([]byte(query)))

	val, err := e.cache.Get(ctx, cacheKey)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return 0, fmt.Errorf("failed to get cached recording length: %w", err)
	}
	if err == nil {
		lengthMs, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("failed to parse cached recording length: %w", err)
		}
		slog.Debug("Cache hit for recording length", "artist", artist, "title", title, "lengthMs", lengthMs)
		return msToDuration(lengthMs), nil
	}

	lengthMs, err := backoff.Retry(ctx, func() (int, error) {
		return e.lookupLength(ctx, query, cacheKey)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		return 0, fmt.Errorf("failed to search MusicBrainz: %w", err)
	}
	return msToDuration(lengthMs), nil
}

func (e *Enricher) lookupLength(ctx context.Context, query, cacheKey string) (int, error) {
	resp, err := e.mb.SearchRecording(query, -1, -1)
	if err != nil {
		return 0, err
	}

	lengthMs := noLength
	if len(resp.Recordings) > 0 {
		if len(resp.Recordings) > 1 {
			slog.Debug("Multiple recordings found, using the first one", "query", query, "count", len(resp.Recordings))
		}
		lengthMs = resp.Recordings[0].Length
	} else {
		slog.Debug("No recording found for query", "query", query)
	}

	if err := e.cache.Set(ctx, cacheKey, strconv.Itoa(lengthMs)); err != nil {
		slog.Warn("Failed to cache recording length", "query", query, "error", err)
	}

	// Stay polite with the public API.
	time.Sleep(lookupDelay)
	return lengthMs, nil
}

func msToDuration(lengthMs int) time.Duration {
	if lengthMs <= 0 {
		return 0
	}
	return time.Duration(lengthMs) * time.Millisecond
}
