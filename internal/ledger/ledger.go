// Package ledger is the durable record of which track identities have
// already been reported downstream. One Store implementation per deployment
// mode: a single-tenant JSON file, a multi-tenant Postgres table, and an
// in-memory store for tests and ephemeral runs. Callers never touch the
// underlying storage directly; every mutation goes through Record.
package ledger

import (
	"context"
	"errors"
)

// LocalUser is the user id used by single-tenant backends.
const LocalUser = "local"

var ErrNotFound = errors.New("ledger: record not found")

// Record is the per-key state kept for a reported track. The JSON field
// names are the on-disk document format and must not change.
type Record struct {
	Timestamp int64  `json:"timestamp"`
	Title     string `json:"track_title"`
	Artist    string `json:"artist"`
	PlayCount int    `json:"scrobble_count"`
}

// Store is the per-user scrobble ledger.
//
// Record is an idempotent upsert: an existing key gets its play count
// incremented and its timestamp/title/artist overwritten, a new key is
// inserted with play count 1. A failed Record leaves the stored state
// untouched and returns the error. Both methods are safe for concurrent use
// and a Snapshot taken after a successful Record reflects that write.
type Store interface {
	Snapshot(ctx context.Context, userID string) (*Snapshot, error)
	Record(ctx context.Context, userID string, key string, rec Record) (*Snapshot, error)
	Close()
}

// Snapshot is a point-in-time read of one user's ledger. It is a plain
// value consulted during a pass; mutating the Store does not update
// snapshots already handed out.
type Snapshot struct {
	records map[string]Record
}

func NewSnapshot() *Snapshot {
	return &Snapshot{records: make(map[string]Record)}
}

func (s *Snapshot) Contains(key string) bool {
	_, ok := s.records[key]
	return ok
}

// ContainsAny reports whether any candidate key is present.
func (s *Snapshot) ContainsAny(keys []string) bool {
	for _, k := range keys {
		if s.Contains(k) {
			return true
		}
	}
	return false
}

func (s *Snapshot) Get(key string) (Record, bool) {
	rec, ok := s.records[key]
	return rec, ok
}

func (s *Snapshot) Len() int {
	return len(s.records)
}

// put upserts into the snapshot with Record semantics.
func (s *Snapshot) put(key string, rec Record) {
	if existing, ok := s.records[key]; ok {
		rec.PlayCount = existing.PlayCount + 1
	} else if rec.PlayCount == 0 {
		rec.PlayCount = 1
	}
	s.records[key] = rec
}
