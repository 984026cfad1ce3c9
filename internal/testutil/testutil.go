// Package testutil provides shared test helpers for building services on
// throwaway storage.
package testutil

import (
	"context"
	"testing"

	"github.com/starford/haven/internal/ident"
	"github.com/starford/haven/internal/safety"
	"github.com/starford/haven/internal/snapshot"
	"github.com/starford/haven/internal/storage"
)

// TestService returns an initialised service on in-memory storage with
// sequential ids starting at 100. opts may override anything but the adapter.
func TestService(t *testing.T, opts safety.Options) (*safety.Service, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	if opts.IDs == nil {
		opts.IDs = ident.NewSequence(100)
	}
	svc := safety.New(snapshot.NewAdapter(mem, nil, opts.Metrics), opts)
	svc.Initialize(context.Background())
	return svc, mem
}
