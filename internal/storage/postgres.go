package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/starford/haven/internal/apperr"
)

const pgSchemaSQL = `
CREATE TABLE IF NOT EXISTS haven_slots (
	key        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres implements Backend on a Postgres table with JSONB payloads.
type Postgres struct {
	conn *sql.DB
}

// OpenPostgres connects using dsn and ensures the slot table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage: postgres dsn is required")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}
	if _, err := conn.ExecContext(ctx, pgSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply postgres schema: %w", err)
	}
	return &Postgres{conn: conn}, nil
}

// Driver implements Backend.
func (p *Postgres) Driver() Driver { return DriverPostgres }

// Close closes the connection pool.
func (p *Postgres) Close() error { return p.conn.Close() }

// Get returns the payload stored under key.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var payload string
	err := p.conn.QueryRowContext(ctx, `SELECT payload::text FROM haven_slots WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: slot %s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: select %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Put upserts the payload for key. The payload must be valid JSON.
func (p *Postgres) Put(ctx context.Context, key string, payload []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := p.conn.ExecContext(ctx, `
		INSERT INTO haven_slots (key, payload, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET
			payload    = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, key, string(payload))
	if err != nil {
		return fmt.Errorf("storage: upsert %s: %w", key, err)
	}
	return nil
}
