// Package users resolves which identities a sync pass runs for. Single
// installations have exactly one local user built from configuration;
// multi-tenant deployments keep users in Postgres and the scheduler
// iterates the active ones.
package users

import (
	"context"
	"time"
)

// LocalID is the sentinel identity of single-tenant installations.
const LocalID = "local"

// User is the stable per-pass identity handle plus the credentials needed
// to build that user's history source and scrobble sink.
type User struct {
	ID               string
	Email            string
	LastFMUsername   string
	LastFMAPIKey     string
	LastFMAPISecret  string
	LastFMSessionKey string
	YTMusicHeaders   string
	AutoScrobble     bool
	Interval         time.Duration
	LastSyncAt       *time.Time
}

// Directory lists and resolves users.
type Directory interface {
	// Active returns users due for a scheduled pass, least-recently-synced
	// first.
	Active(ctx context.Context) ([]User, error)
	Lookup(ctx context.Context, id string) (*User, error)
	// TouchSync stamps the user's last sync time after a pass.
	TouchSync(ctx context.Context, id string) error
}

// Local is the single-tenant directory: one fixed user, due whenever
// background syncing is enabled for it.
type Local struct {
	user User
}

func NewLocal(user User) *Local {
	user.ID = LocalID
	return &Local{user: user}
}

func (l *Local) Active(_ context.Context) ([]User, error) {
	if !l.user.AutoScrobble {
		return nil, nil
	}
	return []User{l.user}, nil
}

func (l *Local) Lookup(_ context.Context, id string) (*User, error) {
	if id != LocalID {
		return nil, nil
	}
	u := l.user
	return &u, nil
}

func (l *Local) TouchSync(_ context.Context, _ string) error {
	now := time.Now()
	l.user.LastSyncAt = &now
	return nil
}
