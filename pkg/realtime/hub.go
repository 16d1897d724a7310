package realtime

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/notify"
	"github.com/relatoapp/relato/pkg/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Frame is the JSON shape of every message written to a connection.
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type client struct {
	conn   *websocket.Conn
	userID int64

	// writeMu serializes Emit frames with keepalive pings.
	writeMu sync.Mutex
	done    chan struct{}
}

// Hub owns the live WebSocket connections. It implements notify.Transport.
type Hub struct {
	registry *notify.Registry
	logger   *observability.Logger
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

// NewHub creates a hub that binds accepted connections in registry.
func NewHub(registry *notify.Registry, logger *observability.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// ServeHTTP handles GET /ws. The route is registered behind the auth gate,
// which validates the token (the query-parameter form included) and
// re-checks live user and organization state before the upgrade, so a
// deactivated account or suspended tenant never gets a live channel.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFromContext(r.Context())
	if ident == nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	connID := uuid.NewString()
	c := &client{conn: conn, userID: ident.UserID, done: make(chan struct{})}

	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()
	h.registry.Bind(ident.UserID, connID)

	if h.metrics != nil {
		h.metrics.WSConnectsTotal.Inc()
		h.metrics.WSConnectionsActive.Inc()
	}
	h.logger.WithFields(map[string]interface{}{
		"user_id": ident.UserID,
		"conn_id": connID,
	}).Debug("websocket connected")

	go h.pingLoop(c)
	go h.readLoop(connID, c)
}

// readLoop consumes inbound frames until the peer goes away, then tears
// the connection down. Clients send nothing we act on; reading is what
// detects the disconnect.
func (h *Hub) readLoop(connID string, c *client) {
	defer h.drop(connID, c)

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) pingLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(connID string, c *client) {
	h.mu.Lock()
	_, known := h.clients[connID]
	delete(h.clients, connID)
	h.mu.Unlock()
	if !known {
		return
	}

	close(c.done)
	_ = c.conn.Close()
	h.registry.Unbind(connID)

	if h.metrics != nil {
		h.metrics.WSDisconnectsTotal.Inc()
		h.metrics.WSConnectionsActive.Dec()
	}
	h.logger.WithFields(map[string]interface{}{
		"user_id": c.userID,
		"conn_id": connID,
	}).Debug("websocket disconnected")
}

// Emit writes one event frame to one connection. An unknown connection id
// or a failed write returns an error; the caller treats the recipient as
// offline.
func (h *Hub) Emit(connID, event string, data interface{}) error {
	h.mu.Lock()
	c, ok := h.clients[connID]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown connection %s", connID)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(Frame{Event: event, Data: data}); err != nil {
		return fmt.Errorf("write to connection %s: %w", connID, err)
	}
	return nil
}

// Close tears down every live connection. Called during server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make(map[string]*client, len(h.clients))
	for id, c := range h.clients {
		clients[id] = c
	}
	h.mu.Unlock()

	for id, c := range clients {
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		c.writeMu.Unlock()
		h.drop(id, c)
	}
}
