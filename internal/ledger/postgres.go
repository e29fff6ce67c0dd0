package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const pgRecordTimeout = 10 * time.Second

// PostgresStore is the multi-tenant ledger backend. Upsert semantics are
// delegated to the database (ON CONFLICT), so concurrent writers need no
// local locking.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the given DSN, verifies connectivity and ensures
// the scrobbles table exists.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgRecordTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (p *PostgresStore) migrate(ctx context.Context) error {
	migrateCtx, cancel := context.WithTimeout(ctx, pgRecordTimeout)
	defer cancel()

	_, err := p.pool.Exec(migrateCtx,
		`CREATE TABLE IF NOT EXISTS scrobbles (
			user_id TEXT NOT NULL,
			track_uid VARCHAR(512) NOT NULL,
			track_title TEXT,
			artist TEXT,
			last_scrobble_time BIGINT,
			scrobble_count INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, track_uid)
		);
		CREATE INDEX IF NOT EXISTS idx_scrobbles_user_id ON scrobbles(user_id);`)
	if err != nil {
		return fmt.Errorf("failed to create scrobbles table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	queryCtx, cancel := context.WithTimeout(ctx, pgRecordTimeout)
	defer cancel()

	rows, err := p.pool.Query(queryCtx,
		`SELECT track_uid, track_title, artist, last_scrobble_time, scrobble_count
		 FROM scrobbles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read scrobble history: %w", err)
	}
	defer rows.Close()

	snap := NewSnapshot()
	for rows.Next() {
		var (
			key           string
			title, artist *string
			timestamp     *int64
			count         int
		)
		if err := rows.Scan(&key, &title, &artist, &timestamp, &count); err != nil {
			return nil, fmt.Errorf("failed to scan scrobble row: %w", err)
		}
		rec := Record{PlayCount: count}
		if title != nil {
			rec.Title = *title
		}
		if artist != nil {
			rec.Artist = *artist
		}
		if timestamp != nil {
			rec.Timestamp = *timestamp
		}
		snap.records[key] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scrobble history: %w", err)
	}
	return snap, nil
}

func (p *PostgresStore) Record(ctx context.Context, userID string, key string, rec Record) (*Snapshot, error) {
	recordCtx, cancel := context.WithTimeout(ctx, pgRecordTimeout)
	defer cancel()

	_, err := p.pool.Exec(recordCtx,
		`INSERT INTO scrobbles (user_id, track_uid, track_title, artist, last_scrobble_time, scrobble_count)
		 VALUES ($1, $2, $3, $4, $5, 1)
		 ON CONFLICT (user_id, track_uid) DO UPDATE SET
			track_title = EXCLUDED.track_title,
			artist = EXCLUDED.artist,
			last_scrobble_time = EXCLUDED.last_scrobble_time,
			scrobble_count = scrobbles.scrobble_count + 1,
			updated_at = NOW()`,
		userID, key, rec.Title, rec.Artist, rec.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to record scrobble: %w", err)
	}

	return p.Snapshot(ctx, userID)
}

// Pool exposes the underlying connection pool so other components can
// share it instead of opening their own.
func (p *PostgresStore) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *PostgresStore) Close() {
	p.pool.Close()
	slog.Debug("Closed postgres ledger pool")
}
