// Package snapshot encodes whole collections into storage slots and reads
// them back under a strict schema.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/metrics"
	"github.com/starford/haven/internal/storage"
)

// Record is an entity that can be stored in a snapshot.
type Record interface {
	EntityID() string
	// SnapshotFields lists the exact JSON field names of a stored element.
	SnapshotFields() []string
}

// Load fallback reasons, used as the metrics label.
const (
	ReasonUnset      = "unset"
	ReasonUnreadable = "unreadable"
	ReasonCorrupt    = "corrupt"
)

// Adapter binds a storage backend to logging and metrics. Save and Load never
// report errors to the caller; failures degrade to "not persisted" and
// "absent" respectively.
type Adapter struct {
	backend storage.Backend
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewAdapter creates an Adapter. logger and m may be nil.
func NewAdapter(backend storage.Backend, logger *slog.Logger, m *metrics.Collector) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{backend: backend, logger: logger, metrics: m}
}

// Save overwrites the slot under key with the full collection.
func Save[T Record](ctx context.Context, a *Adapter, key string, items []T) {
	payload, err := Encode(items)
	if err == nil {
		err = a.backend.Put(ctx, key, payload)
	}
	if err != nil {
		a.logger.Warn("snapshot save failed",
			slog.String("key", key),
			slog.String("driver", string(a.backend.Driver())),
			slog.String("error", err.Error()))
		a.metrics.SaveFailed(key)
		return
	}
	a.logger.Debug("snapshot saved", slog.String("key", key), slog.Int("items", len(items)))
}

// Load reads the collection stored under key. ok is false when the slot is
// unset, unreadable or does not match the schema of T.
func Load[T Record](ctx context.Context, a *Adapter, key string) ([]T, bool) {
	data, err := a.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			a.logger.Info("snapshot absent", slog.String("key", key))
			a.metrics.LoadFellBack(key, ReasonUnset)
		} else {
			a.logger.Warn("snapshot unreadable",
				slog.String("key", key),
				slog.String("error", err.Error()))
			a.metrics.LoadFellBack(key, ReasonUnreadable)
		}
		return nil, false
	}
	items, err := Decode[T](data)
	if err != nil {
		a.logger.Warn("snapshot corrupt",
			slog.String("key", key),
			slog.String("error", err.Error()))
		a.metrics.LoadFellBack(key, ReasonCorrupt)
		return nil, false
	}
	return items, true
}

// Encode renders items as a JSON array. A nil slice encodes as [].
func Encode[T Record](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// Decode parses a JSON array of T. Every element must carry exactly the
// fields named by SnapshotFields, each holding a string, and ids must be
// non-empty and unique. Errors wrap apperr.ErrCorruptSnapshot.
func Decode[T Record](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, corrupt("not a JSON array")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, corrupt(err.Error())
	}

	var zero T
	fields := zero.SnapshotFields()
	items := make([]T, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, elem := range raw {
		if err := checkFields(elem, fields); err != nil {
			return nil, corrupt(fmt.Sprintf("element %d: %v", i, err))
		}
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			return nil, corrupt(fmt.Sprintf("element %d: %v", i, err))
		}
		id := item.EntityID()
		if id == "" {
			return nil, corrupt(fmt.Sprintf("element %d: empty id", i))
		}
		if _, dup := seen[id]; dup {
			return nil, corrupt(fmt.Sprintf("element %d: duplicate id %q", i, id))
		}
		seen[id] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func checkFields(elem json.RawMessage, fields []string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
		return errors.New("not an object")
	}
	if len(obj) != len(fields) {
		return fmt.Errorf("has %d fields, want %d", len(obj), len(fields))
	}
	for _, f := range fields {
		v, ok := obj[f]
		if !ok {
			return fmt.Errorf("missing field %q", f)
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || v[0] != '"' {
			return fmt.Errorf("field %q is not a string", f)
		}
	}
	return nil
}

func corrupt(msg string) error {
	return fmt.Errorf("snapshot: %s: %w", msg, apperr.ErrCorruptSnapshot)
}
