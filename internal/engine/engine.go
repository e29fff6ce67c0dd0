// Package engine decides, entry by entry, whether a history row is a
// genuine new listen or an artifact that must not be reported again.
//
// The history feed gives no real-time playback signal, so there is no
// reliable way to tell "still playing the same track" from "played it
// again". Once any identity of a track is in the ledger it is never
// re-emitted: the engine trades recall of genuine repeats for zero false
// double-scrobbles.
package engine

import (
	"github.com/cterence/ytmusic-scrobbler/internal/history"
	"github.com/cterence/ytmusic-scrobbler/internal/ledger"
	"github.com/cterence/ytmusic-scrobbler/internal/session"
)

// Reason explains a decision. The values appear in logs and pass reports.
type Reason string

const (
	ReasonFirstPlay        Reason = "first_play"
	ReasonMissingIdentity  Reason = "missing_identity"
	ReasonAlreadyInSession Reason = "already_in_session"
	ReasonAlreadyScrobbled Reason = "already_scrobbled"
)

// Decision is the outcome for one entry. Keys holds the candidate dedup
// keys so the caller can mark and record them after a successful emission.
type Decision struct {
	Emit   bool
	Reason Reason
	Keys   []string
}

// Decide is pure: all state lives in the ledger snapshot and the session
// tracker, consulted fresh on every call. An entry is emitted only when
// none of its candidate keys has been seen in either.
func Decide(entry history.Entry, snap *ledger.Snapshot, sess *session.Tracker) Decision {
	keys := entry.CandidateKeys()
	if len(keys) == 0 {
		return Decision{Reason: ReasonMissingIdentity}
	}
	if sess.ContainsAny(keys) {
		return Decision{Reason: ReasonAlreadyInSession, Keys: keys}
	}
	if snap.ContainsAny(keys) {
		return Decision{Reason: ReasonAlreadyScrobbled, Keys: keys}
	}
	return Decision{Emit: true, Reason: ReasonFirstPlay, Keys: keys}
}
