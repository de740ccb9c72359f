package presence

import (
	"sort"
	"sync"
)

// Handle is a live outbound channel to one connected client.
type Handle interface {
	Push(payload []byte)
}

// Registry tracks which users currently hold an open real-time
// connection. It is an injectable abstraction so the in-process map can
// later be swapped for a shared store without touching the dispatcher.
type Registry interface {
	// Connect registers the handle for a user. A later connect for the
	// same user supersedes the earlier handle (last-connection-wins).
	Connect(userID string, h Handle)

	// Disconnect removes the entry only if h is still the handle on
	// record, so a stale disconnect from a superseded connection never
	// evicts a fresher one. Reports whether the entry was removed.
	Disconnect(userID string, h Handle) bool

	Lookup(userID string) (Handle, bool)
	OnlineUsers() []string
	Broadcast(payload []byte)
}

// MemoryRegistry is the single-process implementation. Safe for
// concurrent use; lifecycle is the process lifetime.
type MemoryRegistry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{handles: make(map[string]Handle)}
}

func (r *MemoryRegistry) Connect(userID string, h Handle) {
	r.mu.Lock()
	r.handles[userID] = h
	r.mu.Unlock()
}

func (r *MemoryRegistry) Disconnect(userID string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.handles[userID]
	if !ok || current != h {
		return false
	}
	delete(r.handles, userID)
	return true
}

func (r *MemoryRegistry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[userID]
	return h, ok
}

func (r *MemoryRegistry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.handles))
	for id := range r.handles {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

func (r *MemoryRegistry) Broadcast(payload []byte) {
	r.mu.RLock()
	for _, h := range r.handles {
		h.Push(payload)
	}
	r.mu.RUnlock()
}
