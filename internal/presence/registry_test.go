package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeHandle) Push(payload []byte) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
}

func (f *fakeHandle) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func TestMemoryRegistry_ConnectLookup(t *testing.T) {
	r := NewMemoryRegistry()
	h := &fakeHandle{}

	r.Connect("alice", h)

	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, h, got.(*fakeHandle))

	_, ok = r.Lookup("bob")
	assert.False(t, ok)
}

func TestMemoryRegistry_LastConnectionWins(t *testing.T) {
	r := NewMemoryRegistry()
	h1 := &fakeHandle{}
	h2 := &fakeHandle{}

	r.Connect("alice", h1)
	r.Connect("alice", h2)

	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, h2, got.(*fakeHandle))
	assert.Equal(t, []string{"alice"}, r.OnlineUsers())
}

func TestMemoryRegistry_StaleDisconnectGuard(t *testing.T) {
	r := NewMemoryRegistry()
	h1 := &fakeHandle{}
	h2 := &fakeHandle{}

	r.Connect("alice", h1)
	r.Connect("alice", h2)

	// Disconnect for the superseded handle must not evict the fresh one.
	removed := r.Disconnect("alice", h1)
	assert.False(t, removed)

	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, h2, got.(*fakeHandle))

	removed = r.Disconnect("alice", h2)
	assert.True(t, removed)

	_, ok = r.Lookup("alice")
	assert.False(t, ok)
	assert.Empty(t, r.OnlineUsers())
}

func TestMemoryRegistry_Broadcast(t *testing.T) {
	r := NewMemoryRegistry()
	ha := &fakeHandle{}
	hb := &fakeHandle{}
	r.Connect("alice", ha)
	r.Connect("bob", hb)

	r.Broadcast([]byte("roster"))

	assert.Equal(t, 1, ha.count())
	assert.Equal(t, 1, hb.count())
}

func TestMemoryRegistry_OnlineUsersSorted(t *testing.T) {
	r := NewMemoryRegistry()
	r.Connect("carol", &fakeHandle{})
	r.Connect("alice", &fakeHandle{})
	r.Connect("bob", &fakeHandle{})

	assert.Equal(t, []string{"alice", "bob", "carol"}, r.OnlineUsers())
}
