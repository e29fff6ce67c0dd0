package app

import (
	"fmt"

	"github.com/cterence/ytmusic-scrobbler/internal/history"
	"github.com/cterence/ytmusic-scrobbler/internal/scrobbler"
	"github.com/cterence/ytmusic-scrobbler/internal/users"
)

// clientFactory builds a user's history source and scrobble sink from the
// credentials on the user record, in both single-user and Postgres modes.
type clientFactory struct{}

func (clientFactory) SourceFor(u users.User) (history.Source, error) {
	headers, err := history.ParseHeaders([]byte(u.YTMusicHeaders))
	if err != nil {
		return nil, fmt.Errorf("failed to parse YouTube Music headers: %w", err)
	}
	return history.NewYTMusic(headers), nil
}

func (clientFactory) SinkFor(u users.User) (scrobbler.Sink, error) {
	return scrobbler.NewLastFM(u.LastFMAPIKey, u.LastFMAPISecret, u.LastFMSessionKey, u.LastFMUsername)
}
