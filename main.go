package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/cterence/ytmusic-scrobbler/internal/app"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

func main() {
	var (
		configFilePath   string
		headersPath      string
		ledgerPath       string
		databaseURL      string
		lastFMAPIKey     string
		lastFMAPISecret  string
		lastFMSessionKey string
		lastFMUsername   string
		cacheType        string
		redisURL         string
		listenAddr       string
		cronSecret       string
		autoScrobble     bool
		syncInterval     time.Duration
		lookupDurations  bool
		logLevel         string
		telegramBotToken string
		telegramChatID   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "config.yaml",
			Usage:       "Path to the configuration file",
			Destination: &configFilePath,
		},
		&cli.StringFlag{
			Name:        "headers",
			Usage:       "Path to the exported YouTube Music request headers file",
			Value:       "headers.json",
			Sources:     cli.NewValueSourceChain(yaml.YAML("headers", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &headersPath,
		},
		&cli.StringFlag{
			Name:        "ledger-path",
			Usage:       "Path to the JSON scrobble ledger",
			Value:       "scrobbled.json",
			Sources:     cli.NewValueSourceChain(yaml.YAML("ledgerPath", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &ledgerPath,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "Postgres URL, enables multi-user mode",
			Sources:     cli.NewValueSourceChain(yaml.YAML("databaseURL", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &databaseURL,
		},
		&cli.StringFlag{
			Name:        "lastfm-api-key",
			Usage:       "Last.fm API key",
			Sources:     cli.NewValueSourceChain(yaml.YAML("lastfm.apiKey", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &lastFMAPIKey,
		},
		&cli.StringFlag{
			Name:        "lastfm-api-secret",
			Usage:       "Last.fm API secret",
			Sources:     cli.NewValueSourceChain(yaml.YAML("lastfm.apiSecret", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &lastFMAPISecret,
		},
		&cli.StringFlag{
			Name:        "lastfm-session-key",
			Usage:       "Last.fm authenticated session key",
			Sources:     cli.NewValueSourceChain(yaml.YAML("lastfm.sessionKey", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &lastFMSessionKey,
		},
		&cli.StringFlag{
			Name:        "lastfm-username",
			Aliases:     []string{"u"},
			Usage:       "Last.fm username",
			Sources:     cli.NewValueSourceChain(yaml.YAML("lastfm.username", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &lastFMUsername,
		},
		&cli.StringFlag{
			Name:        "cache",
			Usage:       "Cache type (redis|inmemory|file)",
			Value:       "inmemory",
			Sources:     cli.NewValueSourceChain(yaml.YAML("cache", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &cacheType,
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL",
			Value:       "redis://localhost:6379/0",
			Sources:     cli.NewValueSourceChain(yaml.YAML("redisURL", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &redisURL,
		},
		&cli.StringFlag{
			Name:        "listen-addr",
			Usage:       "HTTP listen address for serve mode",
			Value:       ":8080",
			Sources:     cli.NewValueSourceChain(yaml.YAML("listenAddr", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &listenAddr,
		},
		&cli.StringFlag{
			Name:        "cron-secret",
			Usage:       "Shared secret required by the cron endpoint",
			Sources:     cli.NewValueSourceChain(yaml.YAML("cronSecret", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &cronSecret,
		},
		&cli.BoolFlag{
			Name:        "auto-scrobble",
			Usage:       "Enable background syncing in serve mode",
			Sources:     cli.NewValueSourceChain(yaml.YAML("autoScrobble", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &autoScrobble,
		},
		&cli.DurationFlag{
			Name:        "sync-interval",
			Usage:       "Interval between background sync sweeps",
			Value:       5 * time.Minute,
			Sources:     cli.NewValueSourceChain(yaml.YAML("syncInterval", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &syncInterval,
		},
		&cli.BoolFlag{
			Name:        "lookup-durations",
			Usage:       "Look up missing track durations on MusicBrainz",
			Sources:     cli.NewValueSourceChain(yaml.YAML("lookupDurations", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &lookupDurations,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug|info|warn|error)",
			Value:       "info",
			Sources:     cli.NewValueSourceChain(yaml.YAML("logLevel", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "telegram-bot-token",
			Usage:       "Telegram bot token for sweep notifications",
			Sources:     cli.NewValueSourceChain(yaml.YAML("telegram.botToken", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &telegramBotToken,
		},
		&cli.StringFlag{
			Name:        "telegram-chat-id",
			Usage:       "Telegram chat ID for sweep notifications",
			Sources:     cli.NewValueSourceChain(yaml.YAML("telegram.chatID", altsrc.NewStringPtrSourcer(&configFilePath))),
			Destination: &telegramChatID,
		},
	}

	buildConfig := func() app.Config {
		return app.Config{
			HeadersPath:      headersPath,
			LedgerPath:       ledgerPath,
			DatabaseURL:      databaseURL,
			LastFMAPIKey:     lastFMAPIKey,
			LastFMAPISecret:  lastFMAPISecret,
			LastFMSessionKey: lastFMSessionKey,
			LastFMUsername:   lastFMUsername,
			CacheType:        cacheType,
			RedisURL:         redisURL,
			ListenAddr:       listenAddr,
			CronSecret:       cronSecret,
			AutoScrobble:     autoScrobble,
			SyncInterval:     syncInterval,
			LookupDurations:  lookupDurations,
			LogLevel:         logLevel,
			TelegramBotToken: telegramBotToken,
			TelegramChatID:   telegramChatID,
		}
	}

	cmd := &cli.Command{
		Name:  "ytmusic-scrobbler",
		Usage: "Scrobble YouTube Music listening history to Last.fm",
		Flags: flags,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a single sync pass and exit",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return app.Run(ctx, buildConfig())
				},
			},
			{
				Name:  "serve",
				Usage: "Start the HTTP API and the background sync scheduler",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return app.Serve(ctx, buildConfig())
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
