package users

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgTimeout = 10 * time.Second

	// Users synced more recently than this are skipped by Active, so an
	// overlapping scheduler tick cannot double-sync anyone.
	syncCutoff = 4 * time.Minute

	defaultInterval = 5 * time.Minute
)

// Postgres is the multi-tenant user directory.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	d := &Postgres{pool: pool}
	if err := d.migrate(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Postgres) migrate(ctx context.Context) error {
	migrateCtx, cancel := context.WithTimeout(ctx, pgTimeout)
	defer cancel()

	_, err := d.pool.Exec(migrateCtx,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT,
			lastfm_username TEXT,
			lastfm_api_key TEXT,
			lastfm_api_secret TEXT,
			lastfm_session_key TEXT,
			ytmusic_headers TEXT,
			settings JSONB NOT NULL DEFAULT '{"auto_scrobble": false, "interval": 300}'::jsonb,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_sync_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

const userColumns = `id, email, lastfm_username, lastfm_api_key, lastfm_api_secret,
	lastfm_session_key, ytmusic_headers, settings, last_sync_at`

func (d *Postgres) Active(ctx context.Context) ([]User, error) {
	queryCtx, cancel := context.WithTimeout(ctx, pgTimeout)
	defer cancel()

	rows, err := d.pool.Query(queryCtx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE is_active
		   AND settings->>'auto_scrobble' = 'true'
		   AND (last_sync_at IS NULL OR last_sync_at < NOW() - make_interval(secs => $1))
		 ORDER BY last_sync_at ASC NULLS FIRST`,
		syncCutoff.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return users, nil
}

func (d *Postgres) Lookup(ctx context.Context, id string) (*User, error) {
	queryCtx, cancel := context.WithTimeout(ctx, pgTimeout)
	defer cancel()

	rows, err := d.pool.Query(queryCtx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	u, err := scanUser(rows)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *Postgres) TouchSync(ctx context.Context, id string) error {
	execCtx, cancel := context.WithTimeout(ctx, pgTimeout)
	defer cancel()

	_, err := d.pool.Exec(execCtx,
		`UPDATE users SET last_sync_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last sync time: %w", err)
	}
	return nil
}

type settings struct {
	AutoScrobble bool `json:"auto_scrobble"`
	Interval     int  `json:"interval"`
}

func scanUser(rows pgx.Rows) (User, error) {
	var (
		u           User
		email       *string
		username    *string
		apiKey      *string
		apiSecret   *string
		sessionKey  *string
		headers     *string
		rawSettings []byte
	)
	if err := rows.Scan(&u.ID, &email, &username, &apiKey, &apiSecret,
		&sessionKey, &headers, &rawSettings, &u.LastSyncAt); err != nil {
		return User{}, fmt.Errorf("failed to scan user row: %w", err)
	}

	setIfPresent := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setIfPresent(&u.Email, email)
	setIfPresent(&u.LastFMUsername, username)
	setIfPresent(&u.LastFMAPIKey, apiKey)
	setIfPresent(&u.LastFMAPISecret, apiSecret)
	setIfPresent(&u.LastFMSessionKey, sessionKey)
	setIfPresent(&u.YTMusicHeaders, headers)

	u.Interval = defaultInterval
	if len(rawSettings) > 0 {
		var s settings
		if err := json.Unmarshal(rawSettings, &s); err != nil {
			slog.Warn("Failed to parse user settings, using defaults", "user", u.ID, "error", err)
		} else {
			u.AutoScrobble = s.AutoScrobble
			if s.Interval > 0 {
				u.Interval = time.Duration(s.Interval) * time.Second
			}
		}
	}
	return u, nil
}
