package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type slotEvent struct{ kind, key string }

func startWatch(t *testing.T, f *FS) (<-chan slotEvent, func()) {
	t.Helper()
	events := make(chan slotEvent, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.Watch(ctx, nil, func(kind, key string) {
			events <- slotEvent{kind, key}
		})
	}()
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return events, func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Watch: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	}
}

func waitEvent(t *testing.T, events <-chan slotEvent) slotEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for slot event")
		return slotEvent{}
	}
}

func TestWatch_ReportsExternalChangesOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := tempFS(t)
	events, stop := startWatch(t, f)
	defer stop()

	// Own write: suppressed.
	if err := f.Put(context.Background(), "emergencyContacts", []byte(`[]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// External edit of another slot: reported.
	if err := os.WriteFile(filepath.Join(f.Dir(), "safetyKeywords.json"), []byte(`[]`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ev := waitEvent(t, events)
	if ev.kind != SlotChanged || ev.key != "safetyKeywords" {
		t.Errorf("first event = %+v, want changed safetyKeywords", ev)
	}
}

func TestWatch_ReportsRemoval(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := tempFS(t)
	if err := f.Put(context.Background(), "emergencyContacts", []byte(`[]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	events, stop := startWatch(t, f)
	defer stop()

	if err := os.Remove(filepath.Join(f.Dir(), "emergencyContacts.json")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ev := waitEvent(t, events)
	if ev.kind != SlotRemoved || ev.key != "emergencyContacts" {
		t.Errorf("event = %+v, want removed emergencyContacts", ev)
	}
	if f.ownWrite("emergencyContacts", []byte(`[]`)) {
		t.Error("checksum for removed slot was kept")
	}
}
