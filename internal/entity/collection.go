// Package entity holds the generic store behind the user-authored lists
// (emergency contacts and safety keywords).
package entity

import "github.com/starford/haven/internal/snapshot"

// Entity is an element of a Collection.
type Entity interface {
	snapshot.Record
}

// Draft is the id-less input from which an entity is built.
type Draft[T Entity] interface {
	Validate() error
	Build(id string) T
}

// Collection is an ordered list of entities in insertion order.
type Collection[T Entity] []T

// Clone returns a freshly allocated copy. The result is never nil.
func (c Collection[T]) Clone() Collection[T] {
	out := make(Collection[T], len(c))
	copy(out, c)
	return out
}

// Find returns the first entity with the given id.
func (c Collection[T]) Find(id string) (T, bool) {
	for _, e := range c {
		if e.EntityID() == id {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// Contains reports whether an entity with id is present.
func (c Collection[T]) Contains(id string) bool {
	_, ok := c.Find(id)
	return ok
}
