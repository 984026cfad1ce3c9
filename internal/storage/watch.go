package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
)

// SlotEvent kinds passed to a SlotCallback.
const (
	SlotChanged = "changed"
	SlotRemoved = "removed"
)

// SlotCallback is called when a slot file is changed or removed by someone
// other than this process.
type SlotCallback func(kind, key string)

// Watch follows the slot directory until ctx is cancelled. Writes made through
// f itself are recognised by checksum and not reported.
func (f *FS) Watch(ctx context.Context, logger *slog.Logger, cb SlotCallback) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.dir); err != nil {
		return err
	}
	logger.Info("slot watcher: started", slog.String("dir", f.dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("slot watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			key, isSlot := keyFromPath(ev.Name)
			if !isSlot {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					// Gone again before we could read it; a Remove event follows.
					if !errors.Is(readErr, fs.ErrNotExist) {
						logger.Warn("slot watcher: read failed",
							slog.String("key", key),
							slog.String("error", readErr.Error()))
					}
					continue
				}
				if f.ownWrite(key, data) {
					continue
				}
				logger.Debug("slot watcher: external change", slog.String("key", key))
				if cb != nil {
					cb(SlotChanged, key)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if _, statErr := os.Stat(ev.Name); statErr == nil {
					continue
				}
				f.mu.Lock()
				delete(f.written, key)
				f.mu.Unlock()
				logger.Debug("slot watcher: slot removed", slog.String("key", key))
				if cb != nil {
					cb(SlotRemoved, key)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("slot watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
