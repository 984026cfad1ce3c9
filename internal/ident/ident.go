// Package ident generates identifiers for newly created entities.
package ident

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Generator produces identifiers for new entities.
type Generator interface {
	NewID() string
}

// UUID yields time-ordered UUIDv7 strings.
type UUID struct{}

// NewID returns a UUIDv7, or a random UUIDv4 if the clock source fails.
func (UUID) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Sequence hands out increasing decimal ids. Safe for concurrent use.
type Sequence struct {
	mu   sync.Mutex
	next uint64
}

// NewSequence returns a Sequence whose first id is start.
func NewSequence(start uint64) *Sequence {
	return &Sequence{next: start}
}

// NewID returns the next number in the sequence.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strconv.FormatUint(s.next, 10)
	s.next++
	return id
}

// Func adapts a plain function to Generator.
type Func func() string

// NewID calls f.
func (f Func) NewID() string { return f() }
