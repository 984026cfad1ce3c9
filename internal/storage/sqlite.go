package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/starford/haven/internal/apperr"
)

// SQLiteEngine selects the database/sql driver behind the sqlite backend.
type SQLiteEngine string

const (
	// EngineCGO uses mattn/go-sqlite3.
	EngineCGO SQLiteEngine = "cgo"
	// EnginePure uses modernc.org/sqlite, no C toolchain needed.
	EnginePure SQLiteEngine = "pure"
)

const slotSchemaSQL = `
CREATE TABLE IF NOT EXISTS slots (
	key        TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite implements Backend on a single SQLite table.
type SQLite struct {
	conn   *sql.DB
	engine SQLiteEngine
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, engine SQLiteEngine) (*SQLite, error) {
	var driver, dsn string
	switch engine {
	case EngineCGO, "":
		engine = EngineCGO
		driver, dsn = "sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000"
	case EnginePure:
		driver, dsn = "sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	default:
		return nil, fmt.Errorf("storage: unknown sqlite engine %q", engine)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(slotSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply sqlite schema: %w", err)
	}
	return &SQLite{conn: conn, engine: engine}, nil
}

// Driver implements Backend.
func (s *SQLite) Driver() Driver { return DriverSQLite }

// Engine reports which sqlite driver is in use.
func (s *SQLite) Engine() SQLiteEngine { return s.engine }

// Close closes the database.
func (s *SQLite) Close() error { return s.conn.Close() }

// Get returns the payload stored under key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var payload string
	err := s.conn.QueryRowContext(ctx, `SELECT payload FROM slots WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: slot %s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: select %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Put upserts the payload for key.
func (s *SQLite) Put(ctx context.Context, key string, payload []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO slots (key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			payload    = excluded.payload,
			updated_at = excluded.updated_at
	`, key, string(payload))
	if err != nil {
		return fmt.Errorf("storage: upsert %s: %w", key, err)
	}
	return nil
}
