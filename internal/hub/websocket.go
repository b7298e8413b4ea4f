package hub

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// ServeWS upgrades the request and runs the connection until it closes.
// Every exit path removes the connection from the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newConn(ws, h.cfg.SendBuffer)
	h.Register(c)

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

// Keepalive fallbacks for an unset websocket config.
const (
	defaultPingInterval = 30 * time.Second
	defaultPongWait     = 10 * time.Second
)

func (h *Hub) deadlines() (pingInterval, pongWait time.Duration) {
	pingInterval = time.Duration(h.cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	pongWait = time.Duration(h.cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	return pingInterval, pongWait
}

// readPump reads frames until the socket fails or goes idle.
func (h *Hub) readPump(ctx context.Context, c *Conn) {
	defer func() {
		h.Remove(c)
		c.ws.Close()
	}()

	pingInterval, pongWait := h.deadlines()
	idle := pingInterval + pongWait

	if h.cfg.MaxMessageSize > 0 {
		c.ws.SetReadLimit(int64(h.cfg.MaxMessageSize))
	}
	//nolint:errcheck // Best-effort deadline on connection setup
	c.ws.SetReadDeadline(time.Now().Add(idle))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "conn_id", c.id, "error", err)
			} else {
				h.logger.Debug("websocket closed", "conn_id", c.id, "error", err)
			}
			return
		}
		// Any client frame counts as liveness, even without protocol pongs.
		//nolint:errcheck // Best-effort deadline reset
		c.ws.SetReadDeadline(time.Now().Add(idle))
		h.handleFrame(ctx, c, frame)
	}
}

// writePump drains the outbound channel and sends keepalive pings.
func (h *Hub) writePump(c *Conn) {
	pingInterval, pongWait := h.deadlines()
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.Remove(c)
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.ws.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.ws.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleFrame processes one inbound frame for c. ServeWS calls it for socket
// connections; other transports may call it directly.
func (h *Hub) HandleFrame(ctx context.Context, c *Conn, frame []byte) {
	h.handleFrame(ctx, c, frame)
}

func (h *Hub) handleFrame(ctx context.Context, c *Conn, frame []byte) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		h.reply(c, Message{Type: TypeError, Message: "invalid JSON message"})
		return
	}

	switch msg.Type {
	case TypePing:
		h.reply(c, Message{Type: TypePong})
	case TypeAuth:
		h.handleAuth(ctx, c, msg.Identity)
	default:
		if c.UserID() == "" {
			h.reply(c, Message{Type: TypeError, Message: "authentication required"})
			return
		}
		h.reply(c, Message{Type: TypeError, Message: "unknown message type: " + msg.Type})
	}
}

func (h *Hub) handleAuth(ctx context.Context, c *Conn, identity string) {
	if identity == "" {
		h.reply(c, Message{Type: TypeError, Message: "identity required"})
		return
	}
	if h.authn == nil {
		h.reply(c, Message{Type: TypeError, Message: "authentication unavailable"})
		return
	}

	userID, err := h.authn.Authenticate(ctx, identity)
	if err != nil || userID == "" {
		h.logger.Debug("push authentication rejected", "conn_id", c.id, "error", err)
		h.reply(c, Message{Type: TypeError, Message: "authentication failed"})
		return
	}

	if err := h.Authenticate(c, userID); err != nil {
		h.reply(c, Message{Type: TypeError, Message: err.Error()})
		return
	}

	h.logger.Info("push connection authenticated", "conn_id", c.id, "user_id", userID)
	h.reply(c, Message{Type: TypeAuthSuccess, Identity: userID})
}

func (h *Hub) reply(c *Conn, msg Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(frame)
}
