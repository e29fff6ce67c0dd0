package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cterence/ytmusic-scrobbler/internal/history"
	"github.com/cterence/ytmusic-scrobbler/internal/scrobbler"
	"github.com/cterence/ytmusic-scrobbler/internal/users"
)

// Clients builds per-user history sources and scrobble sinks from the
// credentials stored on the user record.
type Clients interface {
	SourceFor(u users.User) (history.Source, error)
	SinkFor(u users.User) (scrobbler.Sink, error)
}

// Summary aggregates one sweep over all active users.
type Summary struct {
	UsersProcessed int      `json:"usersProcessed"`
	TotalScrobbled int      `json:"totalScrobbled"`
	Errors         []string `json:"errors"`
}

// SyncAll runs one scheduled pass for every user currently due for a sync.
// Per-user failures are collected in the summary; a pass lock held by a
// concurrent manual trigger aborts the sweep.
func (s *Syncer) SyncAll(ctx context.Context, dir users.Directory, clients Clients) Summary {
	summary := Summary{Errors: []string{}}

	active, err := dir.Active(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("failed to list active users: %v", err))
		return summary
	}
	slog.Debug("Starting sync sweep", "users", len(active))

	for _, u := range active {
		if err := s.syncUser(ctx, u, dir, clients, &summary); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				summary.Errors = append(summary.Errors, err.Error())
				break
			}
			summary.Errors = append(summary.Errors, fmt.Sprintf("user %s: %v", u.ID, err))
		}
	}

	s.notifySummary(ctx, summary)
	return summary
}

func (s *Syncer) syncUser(ctx context.Context, u users.User, dir users.Directory, clients Clients, summary *Summary) error {
	src, err := clients.SourceFor(u)
	if err != nil {
		return fmt.Errorf("failed to build history source: %w", err)
	}
	sink, err := clients.SinkFor(u)
	if err != nil {
		return fmt.Errorf("failed to build scrobble sink: %w", err)
	}

	res, err := s.RunScheduledPass(ctx, u.ID, src, sink)
	if err != nil {
		return err
	}

	summary.UsersProcessed++
	summary.TotalScrobbled += res.Emitted
	for _, o := range res.Outcomes {
		if o.Err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("user %s: %v", u.ID, o.Err))
		}
	}

	if err := dir.TouchSync(ctx, u.ID); err != nil {
		slog.Warn("Failed to update last sync time", "user", u.ID, "error", err)
	}
	return nil
}

func (s *Syncer) notifySummary(ctx context.Context, summary Summary) {
	if s.notifier == nil || (summary.TotalScrobbled == 0 && len(summary.Errors) == 0) {
		return
	}
	text := fmt.Sprintf("Sync sweep: %d user(s) processed, %d track(s) scrobbled", summary.UsersProcessed, summary.TotalScrobbled)
	for _, e := range summary.Errors {
		text += "\nerror: " + e
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		slog.Warn("Failed to send sweep notification", "error", err)
	}
}

// Scheduler runs sweeps on a fixed interval until the context is canceled.
type Scheduler struct {
	interval time.Duration
	run      func(ctx context.Context)
}

func NewScheduler(interval time.Duration, run func(ctx context.Context)) *Scheduler {
	return &Scheduler{interval: interval, run: run}
}

// Run performs an immediate sweep, then one per interval tick. It returns
// when ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Starting sync scheduler", "interval", s.interval)
	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping sync scheduler")
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}
