// Package syncer drives sync passes: fetch history, decide per entry,
// submit accepted plays, record them in the ledger. It owns the pass-level
// lock that keeps the whole system single-flight.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cterence/ytmusic-scrobbler/internal/engine"
	"github.com/cterence/ytmusic-scrobbler/internal/history"
	"github.com/cterence/ytmusic-scrobbler/internal/ledger"
	"github.com/cterence/ytmusic-scrobbler/internal/notify"
	"github.com/cterence/ytmusic-scrobbler/internal/scrobbler"
	"github.com/cterence/ytmusic-scrobbler/internal/session"
	"github.com/cterence/ytmusic-scrobbler/internal/track"
)

// ErrAlreadyRunning is returned when a pass is requested while another one
// holds the pass lock. Triggers report it and exit; they never queue.
var ErrAlreadyRunning = errors.New("a sync pass is already running")

const (
	// DefaultManualLimit bounds manually triggered passes; scheduled
	// passes use the narrower DefaultScheduledLimit since unattended runs
	// tolerate less cost and risk.
	DefaultManualLimit    = 20
	DefaultScheduledLimit = 3

	// scrobbleSpacing separates the submitted timestamps of consecutive
	// feed positions, keeping the downstream timeline in feed order.
	scrobbleSpacing = 180 * time.Second
)

// DurationSource looks up a track length when the feed does not carry one.
type DurationSource interface {
	TrackDuration(ctx context.Context, artist, title string) (time.Duration, error)
}

// Outcome is the per-entry result of a pass, kept for the activity log.
type Outcome struct {
	Entry   history.Entry
	Emitted bool
	Reason  engine.Reason
	Err     error
}

// Result aggregates one pass.
type Result struct {
	Emitted  int
	Outcomes []Outcome
}

// Options tune a Syncer. Zero values fall back to defaults.
type Options struct {
	ManualLimit    int
	ScheduledLimit int
	Durations      DurationSource
	Notifier       notify.Notifier
	Now            func() time.Time
}

type Syncer struct {
	passMu sync.Mutex

	store     ledger.Store
	sess      *session.Tracker
	manual    int
	scheduled int
	durations DurationSource
	notifier  notify.Notifier
	now       func() time.Time
}

func New(store ledger.Store, opts Options) *Syncer {
	s := &Syncer{
		store:     store,
		sess:      session.NewTracker(),
		manual:    opts.ManualLimit,
		scheduled: opts.ScheduledLimit,
		durations: opts.Durations,
		notifier:  opts.Notifier,
		now:       opts.Now,
	}
	if s.manual <= 0 {
		s.manual = DefaultManualLimit
	}
	if s.scheduled <= 0 {
		s.scheduled = DefaultScheduledLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// RunManualPass runs one pass with the wider manual history window.
func (s *Syncer) RunManualPass(ctx context.Context, userID string, src history.Source, sink scrobbler.Sink) (*Result, error) {
	return s.runPass(ctx, userID, src, sink, s.manual)
}

// RunScheduledPass runs one pass with the narrow background window.
func (s *Syncer) RunScheduledPass(ctx context.Context, userID string, src history.Source, sink scrobbler.Sink) (*Result, error) {
	return s.runPass(ctx, userID, src, sink, s.scheduled)
}

func (s *Syncer) runPass(ctx context.Context, userID string, src history.Source, sink scrobbler.Sink, limit int) (*Result, error) {
	if !s.passMu.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer s.passMu.Unlock()

	s.sess.Reset()

	snap, err := s.store.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	snap = s.reconcile(ctx, userID, snap, sink, limit)

	entries, err := src.History(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	slog.Debug("Fetched history", "user", userID, "entries", len(entries))

	passStart := s.now()
	result := &Result{}
	for _, entry := range entries {
		outcome := s.processEntry(ctx, userID, entry, passStart, &snap, sink)
		if outcome.Emitted {
			result.Emitted++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	slog.Info("Sync pass complete", "user", userID, "entries", len(entries), "scrobbled", result.Emitted)
	return result, nil
}

// processEntry decides and, for accepted entries, submits and records one
// history row. Failures are contained here: a bad entry never aborts the
// pass.
func (s *Syncer) processEntry(ctx context.Context, userID string, entry history.Entry, passStart time.Time, snap **ledger.Snapshot, sink scrobbler.Sink) Outcome {
	decision := engine.Decide(entry, *snap, s.sess)
	if !decision.Emit {
		slog.Debug("Skipping entry", "title", entry.Title, "artist", entry.Artist, "reason", decision.Reason)
		return Outcome{Entry: entry, Reason: decision.Reason}
	}

	sub := scrobbler.Submission{
		Artist:    entry.Artist,
		Title:     entry.Title,
		Album:     entry.Album,
		Duration:  entry.Duration,
		Timestamp: passStart.Add(-time.Duration(entry.Position) * scrobbleSpacing),
	}
	if sub.Duration == 0 && s.durations != nil {
		d, err := s.durations.TrackDuration(ctx, entry.Artist, entry.Title)
		if err != nil {
			slog.Warn("Failed to look up track duration", "title", entry.Title, "artist", entry.Artist, "error", err)
		} else {
			sub.Duration = d
		}
	}

	if err := sink.Submit(ctx, sub); err != nil {
		slog.Error("Failed to submit scrobble", "title", entry.Title, "artist", entry.Artist, "error", err)
		return Outcome{Entry: entry, Reason: decision.Reason, Err: fmt.Errorf("failed to submit scrobble: %w", err)}
	}

	// Mark before recording so a second occurrence in this pass cannot
	// slip through while ledger writes are in flight.
	s.sess.Mark(decision.Keys...)

	rec := ledger.Record{
		Timestamp: sub.Timestamp.Unix(),
		Title:     entry.Title,
		Artist:    entry.Artist,
	}
	var recordErr error
	for _, key := range decision.Keys {
		updated, err := s.store.Record(ctx, userID, key, rec)
		if err != nil {
			recordErr = err
			continue
		}
		*snap = updated
	}
	if recordErr != nil {
		// The scrobble went out but is not fully tracked. Report failure
		// and let the next pass retry: a visible duplicate beats silent
		// loss of tracking state.
		slog.Error("Failed to record scrobble in ledger", "title", entry.Title, "artist", entry.Artist, "error", recordErr)
		return Outcome{Entry: entry, Reason: decision.Reason, Err: fmt.Errorf("failed to record scrobble: %w", recordErr)}
	}

	slog.Info("Scrobbled", "title", entry.Title, "artist", entry.Artist, "timestamp", sub.Timestamp.Unix())
	return Outcome{Entry: entry, Emitted: true, Reason: decision.Reason}
}

// reconcile pulls the sink's recent submissions and records any the local
// ledger does not know about, closing the gap where a scrobble landed
// downstream but the local write failed afterwards. Strictly best-effort.
func (s *Syncer) reconcile(ctx context.Context, userID string, snap *ledger.Snapshot, sink scrobbler.Sink, limit int) *ledger.Snapshot {
	recent, err := sink.Recent(ctx, limit)
	if err != nil {
		slog.Warn("Failed to fetch recent scrobbles for reconciliation", "user", userID, "error", err)
		return snap
	}

	now := s.now().Unix()
	for _, t := range recent {
		keys := track.CandidateKeys(t.Title, t.Artist, "")
		if len(keys) == 0 || snap.ContainsAny(keys) {
			continue
		}
		slog.Info("Reconciling scrobble recorded downstream but missing locally", "title", t.Title, "artist", t.Artist)
		s.sess.Mark(keys...)
		rec := ledger.Record{Timestamp: now, Title: t.Title, Artist: t.Artist}
		for _, key := range keys {
			updated, err := s.store.Record(ctx, userID, key, rec)
			if err != nil {
				slog.Warn("Failed to reconcile ledger entry", "key", key, "error", err)
				continue
			}
			snap = updated
		}
	}
	return snap
}
