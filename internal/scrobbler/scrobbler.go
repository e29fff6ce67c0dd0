// Package scrobbler submits accepted plays to Last.fm and exposes the
// sink's own recent-submission record for reconciliation.
package scrobbler

import (
	"context"
	"time"
)

// Submission is one accepted play to report downstream.
type Submission struct {
	Artist    string
	Title     string
	Album     string
	Duration  time.Duration
	Timestamp time.Time
}

// RecentTrack is a play the sink already has on record.
type RecentTrack struct {
	Artist string
	Title  string
}

// Sink is the downstream scrobble service.
//
// Submit reports one play; implementations serialize concurrent calls so
// the downstream timeline order always matches submission order. Recent
// returns the sink's latest recorded plays, newest first, for
// reconciliation against the local ledger.
type Sink interface {
	Submit(ctx context.Context, sub Submission) error
	Recent(ctx context.Context, limit int) ([]RecentTrack, error)
}
