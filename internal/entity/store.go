package entity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/haven/internal/ident"
	"github.com/starford/haven/internal/metrics"
	"github.com/starford/haven/internal/snapshot"
)

// maxIDAttempts bounds the re-draws when a generated id is already taken.
const maxIDAttempts = 8

// ChangeKind describes a mutation reported to Options.OnChange.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Reloaded ChangeKind = "reloaded"
)

// Change is reported after the current collection of a store changed.
type Change struct {
	Collection string
	Kind       ChangeKind
	ID         string // empty for Reloaded
}

// Options configures a Store.
type Options struct {
	Adapter  *snapshot.Adapter
	IDs      ident.Generator   // defaults to ident.UUID
	Logger   *slog.Logger      // defaults to slog.Default()
	Metrics  *metrics.Collector
	OnChange func(Change)
}

// Store binds one collection to its storage key, default seed and id
// generator.
//
// Add and Remove are value operations: they take a collection, persist the
// result and return it, never touching their input. The holder methods
// (Current, Create, Delete, Get, Reload) apply them to the collection the
// store keeps, serialised by a mutex.
type Store[T Entity, D Draft[T]] struct {
	key     string
	seed    []T
	adapter *snapshot.Adapter
	ids     ident.Generator
	logger  *slog.Logger
	metrics *metrics.Collector
	notify  func(Change)

	mu      sync.Mutex
	current Collection[T]
}

// NewStore creates a store for key. seed is copied and used whenever no
// valid snapshot exists.
func NewStore[T Entity, D Draft[T]](key string, seed []T, opts Options) *Store[T, D] {
	if opts.IDs == nil {
		opts.IDs = ident.UUID{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store[T, D]{
		key:     key,
		seed:    Collection[T](seed).Clone(),
		adapter: opts.Adapter,
		ids:     opts.IDs,
		logger:  opts.Logger.With(slog.String("collection", key)),
		metrics: opts.Metrics,
		notify:  opts.OnChange,
		current: Collection[T](seed).Clone(),
	}
}

// Initialize loads the stored snapshot and makes it the current collection.
// When the slot is absent or corrupt the seed is used; it is not written back
// until the next mutation.
func (s *Store[T, D]) Initialize(ctx context.Context) Collection[T] {
	// The load happens under the lock so a concurrent Create or Delete
	// cannot be overwritten by an older snapshot.
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, ok := snapshot.Load[T](ctx, s.adapter, s.key)
	c := Collection[T](loaded).Clone()
	if !ok {
		c = Collection[T](s.seed).Clone()
		s.logger.Info("using default collection", slog.Int("items", len(c)))
	}
	s.current = c
	return c.Clone()
}

// Add appends an entity built from d to c, persists and returns the result.
// A draft with a blank field leaves c unchanged and persists nothing.
func (s *Store[T, D]) Add(ctx context.Context, c Collection[T], d D) Collection[T] {
	if err := d.Validate(); err != nil {
		s.logger.Debug("draft ignored", slog.String("reason", err.Error()))
		s.metrics.Rejected(s.key)
		return c.Clone()
	}
	next := make(Collection[T], len(c), len(c)+1)
	copy(next, c)
	next = append(next, d.Build(s.newID(c)))

	snapshot.Save[T](ctx, s.adapter, s.key, next)
	s.metrics.Added(s.key)
	return next.Clone()
}

// Remove returns c without any entity whose id equals id and persists the
// result. Removing an unknown id still rewrites the snapshot.
func (s *Store[T, D]) Remove(ctx context.Context, c Collection[T], id string) Collection[T] {
	next := make(Collection[T], 0, len(c))
	for _, e := range c {
		if e.EntityID() != id {
			next = append(next, e)
		}
	}

	snapshot.Save[T](ctx, s.adapter, s.key, next)
	s.metrics.Removed(s.key, len(c)-len(next))
	return next.Clone()
}

// Current returns a copy of the current collection.
func (s *Store[T, D]) Current() Collection[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Get returns the current entity with id.
func (s *Store[T, D]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Find(id)
}

// Create adds d to the current collection. ok is false when the draft was
// rejected.
func (s *Store[T, D]) Create(ctx context.Context, d D) (T, bool) {
	s.mu.Lock()
	before := len(s.current)
	s.current = s.Add(ctx, s.current, d)
	added := len(s.current) > before
	var created T
	if added {
		created = s.current[len(s.current)-1]
	}
	s.mu.Unlock()

	if added {
		s.emit(Change{Collection: s.key, Kind: Added, ID: created.EntityID()})
	}
	return created, added
}

// Delete removes id from the current collection and reports whether an
// entity was removed.
func (s *Store[T, D]) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	before := len(s.current)
	s.current = s.Remove(ctx, s.current, id)
	removed := len(s.current) < before
	s.mu.Unlock()

	if removed {
		s.emit(Change{Collection: s.key, Kind: Removed, ID: id})
	}
	return removed
}

// Reload re-reads the snapshot, e.g. after the slot was edited externally.
func (s *Store[T, D]) Reload(ctx context.Context) Collection[T] {
	c := s.Initialize(ctx)
	s.emit(Change{Collection: s.key, Kind: Reloaded})
	return c
}

func (s *Store[T, D]) newID(c Collection[T]) string {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.ids.NewID()
		if id != "" && !c.Contains(id) {
			return id
		}
	}
	id := ident.UUID{}.NewID()
	s.logger.Warn("id generator kept colliding, fell back to uuid", slog.String("id", id))
	return id
}

func (s *Store[T, D]) emit(ch Change) {
	if s.notify != nil {
		s.notify(ch)
	}
}
