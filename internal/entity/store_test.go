package entity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/starford/haven/internal/ident"
	"github.com/starford/haven/internal/metrics"
	"github.com/starford/haven/internal/models"
	"github.com/starford/haven/internal/snapshot"
	"github.com/starford/haven/internal/storage"
)

type contactStore = Store[models.Contact, models.ContactDraft]

func newContactStore(t *testing.T, mem *storage.Memory, opts Options) *contactStore {
	t.Helper()
	if opts.Adapter == nil {
		opts.Adapter = snapshot.NewAdapter(mem, nil, opts.Metrics)
	}
	return NewStore[models.Contact, models.ContactDraft](models.ContactsKey, models.DefaultContacts(), opts)
}

func stored(t *testing.T, mem *storage.Memory) []models.Contact {
	t.Helper()
	data, err := mem.Get(context.Background(), models.ContactsKey)
	if err != nil {
		t.Fatalf("slot: %v", err)
	}
	got, err := snapshot.Decode[models.Contact](data)
	if err != nil {
		t.Fatalf("decode slot: %v", err)
	}
	return got
}

func TestInitialize_SeedWhenAbsent(t *testing.T) {
	mem := storage.NewMemory()
	s := newContactStore(t, mem, Options{})
	got := s.Initialize(context.Background())
	if diff := cmp.Diff(models.DefaultContacts(), []models.Contact(got)); diff != "" {
		t.Errorf("seed mismatch (-want +got):\n%s", diff)
	}
	// Seed is not written back on load.
	if _, err := mem.Get(context.Background(), models.ContactsKey); err == nil {
		t.Error("seed was persisted by Initialize")
	}
}

func TestInitialize_SeedWhenCorrupt(t *testing.T) {
	mem := storage.NewMemory()
	_ = mem.Put(context.Background(), models.ContactsKey, []byte(`[{"id":"1","name":"x"}]`))
	s := newContactStore(t, mem, Options{})
	if got := s.Initialize(context.Background()); len(got) != 3 || got[0].Name != "Mom" {
		t.Errorf("corrupt slot did not fall back to seed: %+v", got)
	}
}

func TestInitialize_StoredEmptyWins(t *testing.T) {
	mem := storage.NewMemory()
	_ = mem.Put(context.Background(), models.ContactsKey, []byte(`[]`))
	s := newContactStore(t, mem, Options{})
	if got := s.Initialize(context.Background()); len(got) != 0 {
		t.Errorf("stored empty list replaced by seed: %+v", got)
	}
}

func TestAdd_ValidDraft(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newContactStore(t, mem, Options{})
	c := s.Initialize(ctx)

	d := models.ContactDraft{Name: "Sam", Phone: "123", Relation: "Neighbor"}
	next := s.Add(ctx, c, d)

	if len(next) != len(c)+1 {
		t.Fatalf("len = %d, want %d", len(next), len(c)+1)
	}
	last := next[len(next)-1]
	if last.Name != d.Name || last.Phone != d.Phone || last.Relation != d.Relation {
		t.Errorf("last = %+v", last)
	}
	if last.ID == "" || c.Contains(last.ID) {
		t.Errorf("id %q empty or already present", last.ID)
	}
	if diff := cmp.Diff([]models.Contact(next), stored(t, mem)); diff != "" {
		t.Errorf("persisted snapshot differs (-returned +stored):\n%s", diff)
	}
}

func TestAdd_EmptyCollection(t *testing.T) {
	ctx := context.Background()
	s := newContactStore(t, storage.NewMemory(), Options{})
	next := s.Add(ctx, Collection[models.Contact]{}, models.ContactDraft{Name: "Sam", Phone: "123", Relation: "Neighbor"})
	if len(next) != 1 || next[0].ID == "" || next[0].Name != "Sam" {
		t.Errorf("got %+v", next)
	}
}

func TestAdd_BlankFieldIsIgnored(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	m := metrics.New("haven")
	s := newContactStore(t, mem, Options{Metrics: m})
	c := s.Initialize(ctx)

	for _, d := range []models.ContactDraft{
		{Name: "", Phone: "123", Relation: "Neighbor"},
		{Name: "Sam", Phone: "  ", Relation: "Neighbor"},
		{Name: "Sam", Phone: "123", Relation: ""},
		{Name: "Jos\xe9", Phone: "123", Relation: "Neighbor"},
	} {
		next := s.Add(ctx, c, d)
		if !cmp.Equal(c, next) {
			t.Errorf("draft %+v changed collection: %+v", d, next)
		}
	}
	if _, err := mem.Get(ctx, models.ContactsKey); err == nil {
		t.Error("rejected draft was persisted")
	}
	if v := promtest.ToFloat64(m.AddsRejected.WithLabelValues(models.ContactsKey)); v != 4 {
		t.Errorf("rejected = %v", v)
	}
}

func TestAdd_DoesNotMutateInput(t *testing.T) {
	ctx := context.Background()
	s := newContactStore(t, storage.NewMemory(), Options{})
	c := make(Collection[models.Contact], 1, 8)
	c[0] = models.Contact{ID: "a", Name: "A", Phone: "1", Relation: "R"}
	next := s.Add(ctx, c, models.ContactDraft{Name: "B", Phone: "2", Relation: "R"})
	next[0].Name = "changed"
	if c[0].Name != "A" {
		t.Error("returned collection aliases input")
	}
	// The spare capacity of c must not have been written through.
	if got := c[:2][1]; got.ID != "" {
		t.Errorf("input backing array written: %+v", got)
	}
}

func TestAdd_RedrawsCollidingID(t *testing.T) {
	ctx := context.Background()
	// Sequence starting at 1 collides with the seed ids 1..3.
	s := newContactStore(t, storage.NewMemory(), Options{IDs: ident.NewSequence(1)})
	c := s.Initialize(ctx)
	next := s.Add(ctx, c, models.ContactDraft{Name: "Sam", Phone: "123", Relation: "Neighbor"})
	if id := next[len(next)-1].ID; id != "4" {
		t.Errorf("id = %q, want 4", id)
	}
}

func TestAdd_GeneratorAlwaysCollides(t *testing.T) {
	ctx := context.Background()
	s := newContactStore(t, storage.NewMemory(), Options{IDs: ident.Func(func() string { return "1" })})
	c := s.Initialize(ctx)
	next := s.Add(ctx, c, models.ContactDraft{Name: "Sam", Phone: "123", Relation: "Neighbor"})
	id := next[len(next)-1].ID
	if id == "" || c.Contains(id) {
		t.Errorf("fallback id %q is not unique", id)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newContactStore(t, mem, Options{})
	c := s.Initialize(ctx)

	once := s.Remove(ctx, c, "2")
	if len(once) != 2 || once.Contains("2") {
		t.Fatalf("Remove = %+v", once)
	}
	twice := s.Remove(ctx, once, "2")
	if !cmp.Equal(once, twice) {
		t.Errorf("Remove not idempotent: %+v vs %+v", once, twice)
	}
	if len(c) != 3 {
		t.Error("Remove mutated its input")
	}
}

func TestRemove_UnknownIDStillPersists(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newContactStore(t, mem, Options{})
	c := s.Initialize(ctx)

	next := s.Remove(ctx, c, "does-not-exist")
	if !cmp.Equal(c, next) {
		t.Errorf("collection changed: %+v", next)
	}
	if got := stored(t, mem); len(got) != 3 {
		t.Errorf("snapshot not written, got %+v", got)
	}
}

func TestRemove_DropsEveryMatch(t *testing.T) {
	ctx := context.Background()
	s := newContactStore(t, storage.NewMemory(), Options{})
	c := Collection[models.Contact]{{ID: "x"}, {ID: "y"}, {ID: "x"}}
	if got := s.Remove(ctx, c, "x"); len(got) != 1 || got[0].ID != "y" {
		t.Errorf("got %+v", got)
	}
}

func TestSaveFailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newContactStore(t, mem, Options{})
	s.Initialize(ctx)
	mem.FailWrites(errors.New("quota exceeded"))

	created, ok := s.Create(ctx, models.ContactDraft{Name: "Sam", Phone: "123", Relation: "Neighbor"})
	if !ok {
		t.Fatal("Create rejected a valid draft")
	}
	if _, found := s.Get(created.ID); !found {
		t.Error("in-memory collection lost the new contact")
	}
}

func TestHolderOperations(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	var changes []Change
	s := newContactStore(t, mem, Options{
		IDs:      ident.NewSequence(100),
		OnChange: func(c Change) { changes = append(changes, c) },
	})
	s.Initialize(ctx)

	created, ok := s.Create(ctx, models.ContactDraft{Name: "Sam", Phone: "123", Relation: "Neighbor"})
	if !ok || created.ID != "100" {
		t.Fatalf("Create = %+v, %v", created, ok)
	}
	if _, ok := s.Create(ctx, models.ContactDraft{Name: "Sam"}); ok {
		t.Error("Create accepted a blank draft")
	}
	if !s.Delete(ctx, "1") {
		t.Error("Delete(1) reported nothing removed")
	}
	if s.Delete(ctx, "1") {
		t.Error("second Delete(1) reported a removal")
	}

	cur := s.Current()
	if len(cur) != 3 || cur.Contains("1") || !cur.Contains("100") {
		t.Errorf("Current = %+v", cur)
	}
	cur[0].Name = "mutated"
	if c, _ := s.Get(cur[0].ID); c.Name == "mutated" {
		t.Error("Current returned shared storage")
	}

	want := []Change{
		{Collection: models.ContactsKey, Kind: Added, ID: "100"},
		{Collection: models.ContactsKey, Kind: Removed, ID: "1"},
	}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Errorf("changes (-want +got):\n%s", diff)
	}
}

func TestReloadPicksUpExternalWrite(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	var kinds []ChangeKind
	s := newContactStore(t, mem, Options{OnChange: func(c Change) { kinds = append(kinds, c.Kind) }})
	s.Initialize(ctx)

	_ = mem.Put(ctx, models.ContactsKey, []byte(`[{"id":"z","name":"Zoe","phone":"9","relation":"Sister"}]`))
	got := s.Reload(ctx)
	if len(got) != 1 || got[0].Name != "Zoe" {
		t.Errorf("Reload = %+v", got)
	}

	mem.Delete(models.ContactsKey)
	if got := s.Reload(ctx); len(got) != 3 {
		t.Errorf("Reload after clear = %+v, want seed", got)
	}
	if len(kinds) != 2 || kinds[0] != Reloaded {
		t.Errorf("kinds = %v", kinds)
	}
}

// gatedBackend blocks the first Get after arming until release is closed.
type gatedBackend struct {
	storage.Backend
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.Backend.Get(ctx, key)
}

func TestReloadKeepsConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	gate := &gatedBackend{Backend: mem, entered: make(chan struct{}), release: make(chan struct{})}
	s := newContactStore(t, mem, Options{Adapter: snapshot.NewAdapter(gate, nil, nil)})
	s.Initialize(ctx)
	gate.armed.Store(true)

	reloaded := make(chan struct{})
	go func() {
		defer close(reloaded)
		s.Reload(ctx)
	}()
	<-gate.entered

	created := make(chan models.Contact, 1)
	go func() {
		c, _ := s.Create(ctx, models.ContactDraft{Name: "Sam", Phone: "123", Relation: "Neighbor"})
		created <- c
	}()
	// Let Create race the pending load before it is released.
	time.Sleep(50 * time.Millisecond)
	close(gate.release)
	<-reloaded
	sam := <-created

	if !s.Current().Contains(sam.ID) {
		t.Fatalf("created contact %s missing from memory: %+v", sam.ID, s.Current())
	}
	if !Collection[models.Contact](stored(t, mem)).Contains(sam.ID) {
		t.Fatalf("created contact %s missing from storage", sam.ID)
	}

	s.Create(ctx, models.ContactDraft{Name: "Ada", Phone: "456", Relation: "Friend"})
	if got := stored(t, mem); !Collection[models.Contact](got).Contains(sam.ID) || len(got) != 5 {
		t.Errorf("after next create, storage = %+v", got)
	}
}

func TestPersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	open := func() *Store[models.KeywordRule, models.KeywordDraft] {
		return NewStore[models.KeywordRule, models.KeywordDraft](models.KeywordsKey, models.DefaultKeywords(),
			Options{Adapter: snapshot.NewAdapter(fs, nil, nil)})
	}

	first := open()
	first.Initialize(ctx)
	created, _ := first.Create(ctx, models.KeywordDraft{Phrase: "Pineapple", Response: "Call 911"})
	first.Delete(ctx, "2")
	want := first.Current()

	second := open()
	if diff := cmp.Diff(want, second.Initialize(ctx)); diff != "" {
		t.Errorf("after restart (-want +got):\n%s", diff)
	}
	if !second.Current().Contains(created.ID) {
		t.Error("created rule missing after restart")
	}
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s := newContactStore(t, storage.NewMemory(), Options{})
	s.Initialize(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Create(ctx, models.ContactDraft{Name: "N", Phone: "P", Relation: "R"})
		}()
	}
	wg.Wait()

	cur := s.Current()
	if len(cur) != 23 {
		t.Fatalf("len = %d, want 23", len(cur))
	}
	seen := map[string]bool{}
	for _, c := range cur {
		if seen[c.ID] {
			t.Errorf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
	}
}
