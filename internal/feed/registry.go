package feed

import (
	"sync"
	"sync/atomic"
)

// Registry reference-counts the active live-feed subscribers of one game.
// The streaming-active flag is true exactly while the count is positive;
// connection lifecycles register and deregister from independent goroutines.
type Registry struct {
	mu     sync.Mutex
	count  int
	active atomic.Bool
	onIdle func()
}

// NewRegistry creates a registry. onIdle runs on every transition to zero
// subscribers, after the active flag has been cleared.
func NewRegistry(onIdle func()) *Registry {
	return &Registry{onIdle: onIdle}
}

// Register adds one subscriber and returns the new count.
func (r *Registry) Register() int {
	r.mu.Lock()
	r.count++
	count := r.count
	r.active.Store(true)
	r.mu.Unlock()
	return count
}

// Deregister removes one subscriber and returns the new count. Extra calls
// beyond the registered count are ignored so a double-deregister cannot drive
// the count negative.
func (r *Registry) Deregister() int {
	r.mu.Lock()
	if r.count == 0 {
		r.mu.Unlock()
		return 0
	}
	r.count--
	count := r.count
	if count == 0 {
		r.active.Store(false)
	}
	r.mu.Unlock()

	if count == 0 && r.onIdle != nil {
		r.onIdle()
	}
	return count
}

// Active reports whether any subscriber is registered. Cheap enough to call
// between every blocking step of a polling tick.
func (r *Registry) Active() bool {
	return r.active.Load()
}

// Count returns the current subscriber count.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
