package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cterence/ytmusic-scrobbler/internal/cache"
	"github.com/cterence/ytmusic-scrobbler/internal/ledger"
	"github.com/cterence/ytmusic-scrobbler/internal/notify"
	"github.com/cterence/ytmusic-scrobbler/internal/syncer"
	"github.com/cterence/ytmusic-scrobbler/internal/users"
)

type Config struct {
	// Inputs
	HeadersPath      string
	LedgerPath       string
	DatabaseURL      string
	LastFMAPIKey     string
	LastFMAPISecret  string
	LastFMSessionKey string
	LastFMUsername   string
	CacheType        string
	RedisURL         string
	ListenAddr       string
	CronSecret       string
	AutoScrobble     bool
	SyncInterval     time.Duration
	LookupDurations  bool
	LogLevel         string
	TelegramBotToken string
	TelegramChatID   string

	// Internal dependencies
	cache     cache.Cache
	store     ledger.Store
	directory users.Directory
	syncer    *syncer.Syncer
	clients   syncer.Clients
	notifier  notify.Notifier
}

func (c *Config) checkConfig() error {
	slog.Debug("Validating config")

	if c.CacheType == "redis" && c.RedisURL == "" {
		return errors.New("must set redis-url if cache-type is redis")
	}

	if c.DatabaseURL == "" {
		if c.LastFMAPIKey == "" || c.LastFMAPISecret == "" {
			return errors.New("lastfm-api-key and lastfm-api-secret must be set")
		}
		if c.LastFMSessionKey == "" {
			return errors.New("lastfm-session-key must be set, run the auth flow first")
		}
		if c.HeadersPath == "" {
			return errors.New("headers-path must point to the exported YouTube Music request headers")
		}
	}

	if c.SyncInterval < time.Minute {
		return errors.New("sync-interval must be at least one minute")
	}

	if (c.TelegramBotToken != "" && c.TelegramChatID == "") || (c.TelegramBotToken == "" && c.TelegramChatID != "") {
		return errors.New("telegram-bot-token and telegram-chat-id must both be set")
	}

	return nil
}

func (c *Config) close() {
	if c.store != nil {
		c.store.Close()
	}
	if c.cache != nil {
		c.cache.Close()
	}
}

func (c *Config) handleInterrupts(cancel context.CancelFunc) {
	sigInterrupt := make(chan os.Signal, 1)
	signal.Notify(sigInterrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigInterrupt
		slog.Warn("Closing due to interrupt")
		cancel()
	}()
}
