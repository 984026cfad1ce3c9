package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Options selects and configures a backend for Open.
type Options struct {
	Driver       Driver
	Dir          string // fs
	SQLitePath   string
	SQLiteEngine SQLiteEngine
	PostgresDSN  string
	S3           S3Config
	Breaker      BreakerConfig
}

// Open builds the backend named by opts.Driver. Remote backends are wrapped
// in a circuit breaker.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Backend, error) {
	switch opts.Driver {
	case DriverFS, "":
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create slot dir: %w", err)
		}
		return NewFS(opts.Dir)
	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath, opts.SQLiteEngine)
	case DriverPostgres:
		pg, err := OpenPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return WithBreaker(pg, opts.Breaker, logger), nil
	case DriverS3:
		s, err := NewS3(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
		return WithBreaker(s, opts.Breaker, logger), nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}
