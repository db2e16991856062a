// Package sourceregistry holds the set of entropy sources a scheduler polls
// each cycle. It supports concurrent registration and a cheap, lock-free-
// for-the-caller snapshot so the scheduler never holds the registry lock
// while a (potentially slow) source is being polled.
package sourceregistry

import (
	"sync"

	"github.com/mika76/terninger/entropysource"
)

// Registry is a thread-safe set of entropy sources.
type Registry struct {
	mu      sync.Mutex
	sources []entropysource.Source
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Add inserts src into the registry. It is safe to call at any time,
// including while the scheduler is mid-cycle; src will be included starting
// with the next Snapshot.
func (r *Registry) Add(src entropysource.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
}

// Snapshot returns a shallow copy of the current source set: the same
// Source values, in a fresh slice the caller owns outright. Callers should
// iterate the snapshot rather than holding the registry lock across polls.
func (r *Registry) Snapshot() []entropysource.Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entropysource.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Len reports how many sources are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

// ReleaseAll calls Release on every registered source exactly once and
// clears the registry. Errors are collected and returned together; a
// failure to release one source does not prevent the others from being
// released.
func (r *Registry) ReleaseAll() []error {
	r.mu.Lock()
	sources := r.sources
	r.sources = nil
	r.mu.Unlock()

	var errs []error
	for _, src := range sources {
		if err := src.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
