package scrobbler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shkh/lastfm-go/lastfm"
)

var ErrNotAuthenticated = errors.New("last.fm session key not set")

// requestTimeout bounds every Last.fm API call. The pass-level lock is held
// while submissions run, so a stalled connection must fail instead of
// wedging all future passes.
const requestTimeout = 10 * time.Second

// LastFM wraps the Last.fm API for a single authenticated user. A mutex
// serializes submissions: the API enforces rate limits and the submission
// order must reflect feed chronology even if passes ever run concurrently.
type LastFM struct {
	submitMu sync.Mutex
	api      *lastfm.Api
	username string
}

// NewLastFM builds an authenticated client. The username is only needed
// for reading back recent submissions.
func NewLastFM(apiKey, apiSecret, sessionKey, username string) (*LastFM, error) {
	if sessionKey == "" {
		return nil, ErrNotAuthenticated
	}
	api := lastfm.New(apiKey, apiSecret)
	api.SetSession(sessionKey)
	return &LastFM{api: api, username: username}, nil
}

func (l *LastFM) Submit(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := lastfm.P{
		"artist":    sub.Artist,
		"track":     sub.Title,
		"timestamp": sub.Timestamp.Unix(),
	}
	if sub.Album != "" {
		params["album"] = sub.Album
	}
	if sub.Duration > 0 {
		params["duration"] = int(sub.Duration.Seconds())
	}

	l.submitMu.Lock()
	defer l.submitMu.Unlock()
	err := callWithTimeout(ctx, requestTimeout, func() error {
		_, err := l.api.Track.Scrobble(params)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to scrobble track: %w", err)
	}
	return nil
}

func (l *LastFM) Recent(ctx context.Context, limit int) ([]RecentTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.username == "" {
		return nil, errors.New("last.fm username not set, cannot read recent scrobbles")
	}

	var result lastfm.UserGetRecentTracks
	err := callWithTimeout(ctx, requestTimeout, func() error {
		var err error
		result, err = l.api.User.GetRecentTracks(lastfm.P{
			"user":  l.username,
			"limit": limit,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get recent scrobbles: %w", err)
	}

	tracks := make([]RecentTrack, 0, len(result.Tracks))
	for _, t := range result.Tracks {
		// A now-playing row is not a completed submission yet.
		if t.NowPlaying == "true" {
			continue
		}
		tracks = append(tracks, RecentTrack{Artist: t.Artist.Name, Title: t.Name})
	}
	return tracks, nil
}

// callWithTimeout runs op under a deadline. The lastfm client takes no
// context and its HTTP client carries no timeout, so the call runs in a
// goroutine and is abandoned when the deadline passes.
func callWithTimeout(ctx context.Context, timeout time.Duration, op func() error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("last.fm request did not complete: %w", ctx.Err())
	}
}
