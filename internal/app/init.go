package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/cterence/ytmusic-scrobbler/internal/cache"
	"github.com/cterence/ytmusic-scrobbler/internal/ledger"
	"github.com/cterence/ytmusic-scrobbler/internal/mbz"
	"github.com/cterence/ytmusic-scrobbler/internal/notify"
	"github.com/cterence/ytmusic-scrobbler/internal/syncer"
	"github.com/cterence/ytmusic-scrobbler/internal/users"
)

func initApp(ctx context.Context, c *Config) error {
	var slogLogLevel slog.Level

	switch c.LogLevel {
	case "debug":
		slogLogLevel = slog.LevelDebug
	case "info":
		slogLogLevel = slog.LevelInfo
	case "warn":
		slogLogLevel = slog.LevelWarn
	case "error":
		slogLogLevel = slog.LevelError
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	logOpts := slog.HandlerOptions{
		Level: slogLogLevel,
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &logOpts)))

	if err := c.initCache(ctx); err != nil {
		return err
	}

	if err := c.initStorage(ctx); err != nil {
		return err
	}

	var durations syncer.DurationSource
	if c.LookupDurations {
		enricher, err := mbz.New(c.cache)
		if err != nil {
			return fmt.Errorf("failed to create MusicBrainz client: %w", err)
		}
		durations = enricher
	}

	if c.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(c.TelegramBotToken, c.TelegramChatID)
		if err != nil {
			return fmt.Errorf("failed to create Telegram bot: %w", err)
		}
		c.notifier = tg
	}

	c.clients = clientFactory{}
	c.syncer = syncer.New(c.store, syncer.Options{
		Durations: durations,
		Notifier:  c.notifier,
	})

	return nil
}

func (c *Config) initCache(ctx context.Context) error {
	switch c.CacheType {
	case "redis":
		slog.Info("Using Redis cache")
		redisURLParts, err := url.Parse(c.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}

		redisPassword, _ := redisURLParts.User.Password()
		redisDB, err := strconv.Atoi(strings.Split(redisURLParts.Path, "/")[1])
		if err != nil {
			return fmt.Errorf("failed to extract Redis DB from URL: %w", err)
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     redisURLParts.Host,
			Username: redisURLParts.User.Username(),
			Password: redisPassword,
			DB:       redisDB,
		})

		// Test the connection
		status := rdb.Ping(ctx)
		if status.Err() != nil {
			return fmt.Errorf("failed to connect to Redis: %w", status.Err())
		}
		c.cache = cache.NewRedis(rdb)
	case "file":
		slog.Info("Using file cache")
		fc, err := cache.NewFile("cache.txt")
		if err != nil {
			return fmt.Errorf("failed to open file cache: %w", err)
		}
		c.cache = fc
	case "inmemory":
		slog.Info("Using in-memory cache")
		c.cache = cache.NewInMemory()
	default:
		return fmt.Errorf("unsupported cache type: %s", c.CacheType)
	}
	return nil
}

// initStorage picks the ledger backend. A configured database URL selects
// the multi-tenant Postgres mode; anything else runs single-user against
// the JSON file ledger.
func (c *Config) initStorage(ctx context.Context) error {
	if c.DatabaseURL != "" {
		slog.Info("Using Postgres ledger")
		store, err := ledger.NewPostgres(ctx, c.DatabaseURL)
		if err != nil {
			return err
		}
		dir, err := users.NewPostgres(ctx, store.Pool())
		if err != nil {
			store.Close()
			return err
		}
		c.store = store
		c.directory = dir
		return nil
	}

	slog.Info("Using file ledger", "path", c.LedgerPath)
	headers, err := os.ReadFile(c.HeadersPath)
	if err != nil {
		return fmt.Errorf("failed to read headers file: %w", err)
	}

	c.store = ledger.NewFile(c.LedgerPath)
	c.directory = users.NewLocal(users.User{
		LastFMUsername:   c.LastFMUsername,
		LastFMAPIKey:     c.LastFMAPIKey,
		LastFMAPISecret:  c.LastFMAPISecret,
		LastFMSessionKey: c.LastFMSessionKey,
		YTMusicHeaders:   string(headers),
		AutoScrobble:     c.AutoScrobble,
		Interval:         c.SyncInterval,
	})
	return nil
}
