// Package storage defines the durable key-value slots that hold collection snapshots.
package storage

import (
	"context"
	"fmt"
	"regexp"
)

// Driver identifies a concrete slot backend.
type Driver string

const (
	DriverFS       Driver = "fs"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverS3       Driver = "s3"
	DriverMemory   Driver = "memory"
)

// Drivers lists every supported driver.
var Drivers = []Driver{DriverFS, DriverSQLite, DriverPostgres, DriverS3, DriverMemory}

// Backend stores one opaque payload per key. Put overwrites the previous
// payload in full; Get of an unset key returns an error wrapping apperr.ErrNotFound.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
	Driver() Driver
	Close() error
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// checkKey rejects keys that could escape a directory or object prefix.
func checkKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("storage: invalid slot key %q", key)
	}
	return nil
}
