// Package history models the listening-history feed consumed by a sync
// pass. The feed is append-only and carries no play/pause/stop signal; the
// only ordering information is the position in the feed, newest first.
package history

import (
	"context"
	"time"

	"github.com/cterence/ytmusic-scrobbler/internal/track"
)

// Entry is one row of the history feed. Position 0 is the most recent play.
// Duration is zero when the source did not report one or reported something
// unparseable.
type Entry struct {
	Title    string
	Artist   string
	Album    string
	NativeID string
	Duration time.Duration
	Position int
}

// CandidateKeys returns the dedup identities for this entry.
func (e Entry) CandidateKeys() []string {
	return track.CandidateKeys(e.Title, e.Artist, e.NativeID)
}

// Source fetches the most recent plays, newest first, bounded to limit
// entries.
type Source interface {
	History(ctx context.Context, limit int) ([]Entry, error)
}
