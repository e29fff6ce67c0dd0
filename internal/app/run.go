package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cterence/ytmusic-scrobbler/internal/server"
	"github.com/cterence/ytmusic-scrobbler/internal/syncer"
	"github.com/cterence/ytmusic-scrobbler/internal/users"
)

// Run performs a single sync pass and exits. With a Postgres backend it
// sweeps every active user instead.
func Run(ctx context.Context, config Config) error {
	if err := config.checkConfig(); err != nil {
		return err
	}
	if err := initApp(ctx, &config); err != nil {
		return err
	}
	defer config.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	config.handleInterrupts(cancel)

	if config.DatabaseURL != "" {
		summary := config.syncer.SyncAll(ctx, config.directory, config.clients)
		slog.Info("Sweep complete", "usersProcessed", summary.UsersProcessed, "totalScrobbled", summary.TotalScrobbled, "errors", len(summary.Errors))
		if len(summary.Errors) > 0 {
			return fmt.Errorf("sweep finished with %d error(s): %s", len(summary.Errors), summary.Errors[0])
		}
		return nil
	}

	user, err := config.directory.Lookup(ctx, users.LocalID)
	if err != nil {
		return err
	}
	src, err := config.clients.SourceFor(*user)
	if err != nil {
		return err
	}
	sink, err := config.clients.SinkFor(*user)
	if err != nil {
		return err
	}

	res, err := config.syncer.RunManualPass(ctx, user.ID, src, sink)
	if err != nil {
		return err
	}

	var failed int
	for _, o := range res.Outcomes {
		if o.Err != nil {
			failed++
		}
	}
	slog.Info("Run complete", "scrobbled", res.Emitted, "failed", failed)
	return nil
}

// Serve starts the HTTP trigger surface and the background sync scheduler,
// and blocks until the context is canceled.
func Serve(ctx context.Context, config Config) error {
	if err := config.checkConfig(); err != nil {
		return err
	}
	if err := initApp(ctx, &config); err != nil {
		return err
	}
	defer config.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	config.handleInterrupts(cancel)

	scheduler := syncer.NewScheduler(config.SyncInterval, func(ctx context.Context) {
		summary := config.syncer.SyncAll(ctx, config.directory, config.clients)
		if summary.UsersProcessed > 0 || len(summary.Errors) > 0 {
			slog.Info("Scheduled sweep complete", "usersProcessed", summary.UsersProcessed, "totalScrobbled", summary.TotalScrobbled, "errors", len(summary.Errors))
		}
	})
	go scheduler.Run(ctx)

	srv := server.New(config.syncer, config.directory, config.clients, config.CronSecret)
	err := srv.ListenAndServe(ctx, config.ListenAddr)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
