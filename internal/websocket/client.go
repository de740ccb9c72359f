package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one live WebSocket connection. It implements
// presence.Handle: Push enqueues without blocking the caller.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex // protects conn writes and close
	closed bool
}

func NewClient(conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
}

// Push sends a payload to the client's outbound queue (non-blocking).
// A full queue drops the payload; the durable stores remain the source
// of truth, so only timeliness is lost.
func (c *Client) Push(payload []byte) {
	select {
	case c.Send <- payload:
	default:
	}
}

// WriteLoop drains the Send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case msg, ok := <-c.Send:
			if !ok {
				c.Close()
				return
			}
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
		case <-ticker.C:
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.PingMessage, []byte("ping"))
			c.mu.Unlock()
		}
	}
}

// Close closes the underlying connection once.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		_ = c.Conn.Close()
	}
	c.mu.Unlock()
}
