package websocket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"relay-chat/internal/presence"
	"relay-chat/internal/redis"
	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Handler struct {
	auth       *services.AuthService
	registry   presence.Registry
	dispatcher *services.Dispatcher
	limiter    *redis.RateLimiter
}

func NewHandler(auth *services.AuthService, registry presence.Registry, dispatcher *services.Dispatcher, limiter *redis.RateLimiter) *Handler {
	return &Handler{auth: auth, registry: registry, dispatcher: dispatcher, limiter: limiter}
}

// Connect upgrades the request, registers the client in the presence
// registry and blocks on the read loop until the socket dies.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	claims, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	// Connection churn is limited per user before the upgrade happens.
	if h.limiter != nil {
		result, err := h.limiter.AllowConnect(c.Request.Context(), claims.UserID)
		if err == nil && !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("connection rate limit exceeded", "RATE_LIMITED"))
			return
		}
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	userID := strings.TrimSpace(claims.UserID)
	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.registry.Connect(userID, client)
	h.dispatcher.BroadcastRoster()
	go client.WriteLoop(ctx)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}

	// Guarded removal: a reconnect may already have replaced this client.
	if h.registry.Disconnect(userID, client) {
		h.dispatcher.BroadcastRoster()
	}
	client.Close()
}
