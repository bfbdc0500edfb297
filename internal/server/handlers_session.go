package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akumol/guardian/internal/app"
	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/models"
	"github.com/akumol/guardian/internal/services/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// sessionEnvelope is the wire format for one session view tick.
type sessionEnvelope struct {
	Type    string          `json:"type"`
	Profile *models.Profile `json:"profile"`
	Loading bool            `json:"loading"`
}

// clientCommand is what a connected client may send: a token switch or a
// logout. Anything else is ignored.
type clientCommand struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// sessionHub tracks connected session clients so shutdown can close them.
// Unlike a broadcast hub, every client has its own synchronizer and its
// own stream; the hub only manages lifecycle.
type sessionHub struct {
	app        *app.App
	clients    map[*sessionClient]bool
	register   chan *sessionClient
	unregister chan *sessionClient
	done       chan struct{}
	mu         sync.RWMutex
	logger     *common.Logger

	runOnce  sync.Once
	stopOnce sync.Once
}

// sessionClient is one WebSocket connection with its private view stream.
type sessionClient struct {
	hub    *sessionHub
	conn   *websocket.Conn
	send   chan []byte
	sync   *session.Synchronizer
	cancel context.CancelFunc
}

func newSessionHub(a *app.App, logger *common.Logger) *sessionHub {
	return &sessionHub{
		app:        a,
		clients:    make(map[*sessionClient]bool),
		register:   make(chan *sessionClient),
		unregister: make(chan *sessionClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's lifecycle loop. Started lazily on the first
// connection.
func (h *sessionHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.teardown()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", count).Msg("Session client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.teardown()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", count).Msg("Session client disconnected")
		}
	}
}

// Stop signals the hub's event loop to exit.
func (h *sessionHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// add registers a client with the hub loop. Returns false when the hub
// has stopped, so the caller never blocks on a dead loop.
func (h *sessionHub) add(c *sessionClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove hands a client back to the hub loop. After Stop the loop has
// already torn down every registered client, so the done case just drops
// the message.
func (h *sessionHub) remove(c *sessionClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *sessionHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleSessionWS handles GET /ws/session. The bearer middleware has
// already resolved the token (header or token query parameter), so an
// anonymous upgrade starts logged out and may authenticate over the
// socket.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	s.hub.runOnce.Do(func() { go s.hub.Run() })

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &sessionClient{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, 64),
		sync:   session.NewSynchronizer(s.app.Storage, s.logger),
		cancel: cancel,
	}

	if !s.hub.add(client) {
		client.teardown()
		conn.Close()
		return
	}

	go client.viewPump()
	go client.writePump()
	go client.readPump(ctx, s.app)

	if uc := common.UserContextFromContext(r.Context()); uc != nil && uc.UserID != "" {
		client.sync.SetIdentity(ctx, uc.UserID)
	} else {
		client.sync.ClearIdentity()
	}
}

// teardown releases the client's synchronizer. Closing it ends the view
// stream, which in turn closes the send channel from viewPump. Called
// from the hub loop exactly once per client.
func (c *sessionClient) teardown() {
	c.cancel()
	c.sync.Close()
}

// viewPump marshals session views onto the send channel. As the sole
// sender it owns closing the channel when the stream ends.
func (c *sessionClient) viewPump() {
	defer close(c.send)
	for view := range c.sync.Views() {
		data, err := json.Marshal(sessionEnvelope{
			Type:    "session",
			Profile: view.Profile,
			Loading: view.Loading,
		})
		if err != nil {
			continue
		}
		// Same discipline as the synchronizer buffer: a full channel
		// drops the oldest tick, never the latest view.
		select {
		case c.send <- data:
			continue
		default:
		}
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// readPump reads control messages and detects close.
func (c *sessionClient) readPump(ctx context.Context, a *app.App) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		switch cmd.Type {
		case "authenticate":
			_, claims, err := validateJWT(cmd.Token, []byte(a.Config.Auth.JWTSecret))
			if err != nil {
				c.sync.ClearIdentity()
				continue
			}
			if sub, _ := claims["sub"].(string); sub != "" {
				c.sync.SetIdentity(ctx, sub)
			}
		case "logout":
			c.sync.ClearIdentity()
		}
	}
}

// writePump sends messages from the send channel to the WebSocket connection.
func (c *sessionClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
