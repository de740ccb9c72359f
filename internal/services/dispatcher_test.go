package services

import (
	"encoding/json"
	"sync"
	"testing"

	"relay-chat/internal/presence"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu       sync.Mutex
	received [][]byte
}

func (h *fakeHandle) Push(payload []byte) {
	h.mu.Lock()
	h.received = append(h.received, payload)
	h.mu.Unlock()
}

func (h *fakeHandle) payloads() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.received...)
}

func TestDispatcherNotifyConnectedUser(t *testing.T) {
	registry := presence.NewMemoryRegistry()
	userID := uuid.New().String()
	handle := &fakeHandle{}
	registry.Connect(userID, handle)

	d := NewDispatcher(registry, nil)
	delivered := d.Notify(userID, EventMessage, map[string]string{"hello": "world"})
	require.True(t, delivered)

	payloads := handle.payloads()
	require.Len(t, payloads, 1)

	var envelope struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
		TS    string            `json:"ts"`
	}
	require.NoError(t, json.Unmarshal(payloads[0], &envelope))
	assert.Equal(t, EventMessage, envelope.Event)
	assert.Equal(t, "world", envelope.Data["hello"])
	assert.NotEmpty(t, envelope.TS)
}

func TestDispatcherNotifyAbsentUser(t *testing.T) {
	d := NewDispatcher(presence.NewMemoryRegistry(), nil)
	delivered := d.Notify(uuid.New().String(), EventMessage, "anything")
	assert.False(t, delivered, "no handle, no delivery, no queuing")
}

func TestDispatcherBroadcastRoster(t *testing.T) {
	registry := presence.NewMemoryRegistry()
	first := &fakeHandle{}
	second := &fakeHandle{}
	registry.Connect("user-a", first)
	registry.Connect("user-b", second)

	d := NewDispatcher(registry, nil)
	d.BroadcastRoster()

	for _, handle := range []*fakeHandle{first, second} {
		payloads := handle.payloads()
		require.Len(t, payloads, 1)

		var envelope struct {
			Event string   `json:"event"`
			Data  []string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(payloads[0], &envelope))
		assert.Equal(t, EventOnlineUsers, envelope.Event)
		assert.Equal(t, []string{"user-a", "user-b"}, envelope.Data)
	}
}
