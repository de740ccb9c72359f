package services

import (
	"encoding/json"
	"time"

	"relay-chat/internal/presence"
	"relay-chat/pkg/logger"
)

// Real-time event names pushed to connected clients.
const (
	EventMessage        = "message"
	EventMessagesSeen   = "messagesSeen"
	EventMessageDeleted = "messageDeleted"
	EventOnlineUsers    = "getOnlineUsers"
)

// Dispatcher pushes best-effort real-time hints over the presence
// registry. A missed push loses timeliness, never data: the stores stay
// authoritative and clients catch up on the next fetch.
type Dispatcher struct {
	registry presence.Registry
	log      *logger.Logger
}

func NewDispatcher(registry presence.Registry, log *logger.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, log: log}
}

type eventEnvelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"ts"`
}

// Notify pushes one event to the user's live connection if present
// (at-most-once, no queuing). Reports whether a handle was found.
func (d *Dispatcher) Notify(userID, event string, data interface{}) bool {
	handle, ok := d.registry.Lookup(userID)
	if !ok {
		return false
	}

	payload, err := json.Marshal(eventEnvelope{Event: event, Data: data, Timestamp: time.Now()})
	if err != nil {
		if d.log != nil {
			d.log.Errorf("dispatcher: marshal %s event: %v", event, err)
		}
		return false
	}

	handle.Push(payload)
	return true
}

// BroadcastRoster sends the current online-user list to every
// connection.
func (d *Dispatcher) BroadcastRoster() {
	payload, err := json.Marshal(eventEnvelope{
		Event:     EventOnlineUsers,
		Data:      d.registry.OnlineUsers(),
		Timestamp: time.Now(),
	})
	if err != nil {
		if d.log != nil {
			d.log.Errorf("dispatcher: marshal roster: %v", err)
		}
		return
	}
	d.registry.Broadcast(payload)
}
