package relay

import (
	"sync"

	"github.com/samber/lo"
)

// Conn is a live connection handle the relay can deliver messages to.
// Implementations must be comparable (pointer types in practice) because the
// registry uses the handle itself as the membership key.
type Conn interface {
	Send(msg Message) error
}

// Registry is the set of currently live connections. All methods are safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[Conn]struct{})}
}

// Add inserts conn into the live set. Adding a handle that is already present
// leaves the set unchanged.
func (r *Registry) Add(conn Conn) {
	if conn == nil {
		return
	}
	r.mu.Lock()
	r.conns[conn] = struct{}{}
	r.mu.Unlock()
}

// Remove drops conn from the live set. Removing an absent handle is a no-op.
func (r *Registry) Remove(conn Conn) {
	if conn == nil {
		return
	}
	r.mu.Lock()
	delete(r.conns, conn)
	r.mu.Unlock()
}

// Contains reports whether conn is currently registered.
func (r *Registry) Contains(conn Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[conn]
	return ok
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ForEach calls fn once for every connection live at the moment of the call,
// in no particular order. fn runs on a snapshot taken under the read lock, so
// it may itself trigger Add or Remove without deadlocking.
func (r *Registry) ForEach(fn func(Conn)) {
	for _, conn := range r.snapshot() {
		fn(conn)
	}
}

func (r *Registry) snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.conns)
}
