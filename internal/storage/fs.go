package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/checksum"
)

const (
	slotExt   = ".json"
	tmpPrefix = ".haven-tmp-"

	// ownWriteHistory is how many recent own writes per key the watcher
	// recognises. Events may arrive after later writes were already recorded.
	ownWriteHistory = 4
)

// FS implements Backend with one JSON file per slot in a local directory.
type FS struct {
	dir string // absolute path

	mu      sync.Mutex
	written map[string][]checksum.Digest // recent payloads this process wrote, per key, oldest first
}

// NewFS creates an FS backend rooted at dir. The directory must already exist.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: not a directory: %s", abs)
	}
	return &FS{dir: abs, written: make(map[string][]checksum.Digest)}, nil
}

// Dir returns the absolute slot directory.
func (f *FS) Dir() string { return f.dir }

// Driver implements Backend.
func (f *FS) Driver() Driver { return DriverFS }

// Close implements Backend.
func (f *FS) Close() error { return nil }

func (f *FS) slotPath(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, key+slotExt), nil
}

// keyFromPath maps a slot file path back to its key. ok is false for temp
// files and anything that is not a slot file.
func keyFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, tmpPrefix) || !strings.HasSuffix(name, slotExt) {
		return "", false
	}
	key := strings.TrimSuffix(name, slotExt)
	return key, checkKey(key) == nil
}

// Get returns the payload stored under key.
func (f *FS) Get(_ context.Context, key string) ([]byte, error) {
	p, err := f.slotPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: slot %s: %w", key, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// Put atomically replaces the slot: tmp file → fsync → rename.
func (f *FS) Put(_ context.Context, key string, payload []byte) error {
	p, err := f.slotPath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}

	// Record before the rename so the watcher can recognise the resulting event.
	f.mu.Lock()
	recent := append(f.written[key], checksum.Of(payload))
	if len(recent) > ownWriteHistory {
		recent = recent[len(recent)-ownWriteHistory:]
	}
	f.written[key] = recent
	f.mu.Unlock()

	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// ownWrite reports whether data is one of the payloads this process recently
// wrote to key.
func (f *FS) ownWrite(key string, data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.written[key] {
		if d.Matches(data) {
			return true
		}
	}
	return false
}
