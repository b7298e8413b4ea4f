package hub

import (
	"context"
	"errors"
	"sync"

	"github.com/goccy/go-json"

	"github.com/nerrad567/device-relay/internal/infrastructure/config"
	"github.com/nerrad567/device-relay/internal/state"
)

// Domain errors for the hub package.
var (
	// ErrNotRegistered is returned when authenticating a connection that was
	// never registered or has already been removed.
	ErrNotRegistered = errors.New("hub: connection not registered")

	// ErrAlreadyBound is returned when a bound connection authenticates as a
	// different user.
	ErrAlreadyBound = errors.New("hub: connection bound to another user")

	// ErrEmptyUser is returned when binding to an empty user id.
	ErrEmptyUser = errors.New("hub: empty user id")
)

// OwnerResolver resolves the users that currently own a device.
type OwnerResolver interface {
	OwnersOf(ctx context.Context, deviceID string) ([]string, error)
}

// Authenticator turns the identity sent in an auth message into a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, identity string) (userID string, err error)
}

// Logger defines the logging interface used by the Hub.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the hub's collaborators.
type Deps struct {
	Owners        OwnerResolver
	Authenticator Authenticator
	Config        config.WebSocketConfig
	Logger        Logger // optional
}

// Hub is the registry of live connections.
//
// Connections are added and bound by socket goroutines while fan-out iterates
// them from the ingestor. Recipient sets are copied under the read lock and
// sends happen after it is released, so a slow socket never holds the lock.
type Hub struct {
	owners OwnerResolver
	authn  Authenticator
	cfg    config.WebSocketConfig
	logger Logger

	mu     sync.RWMutex
	conns  map[*Conn]struct{}
	byUser map[string]map[*Conn]struct{}
}

// New creates an empty hub.
func New(deps Deps) *Hub {
	h := &Hub{
		owners: deps.Owners,
		authn:  deps.Authenticator,
		cfg:    deps.Config,
		logger: deps.Logger,
		conns:  make(map[*Conn]struct{}),
		byUser: make(map[string]map[*Conn]struct{}),
	}
	if h.logger == nil {
		h.logger = noopLogger{}
	}
	return h
}

// NewConn creates an unbound connection not backed by a socket, with the
// configured send buffer. Callers read frames from Outbound.
func (h *Hub) NewConn() *Conn {
	return newConn(nil, h.cfg.SendBuffer)
}

// Register adds an unbound connection.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("push connection registered", "conn_id", c.id)
}

// Authenticate binds a registered connection to userID.
// Re-authenticating as the same user is a no-op.
func (h *Hub) Authenticate(c *Conn, userID string) error {
	if userID == "" {
		return ErrEmptyUser
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return ErrNotRegistered
	}
	switch current := c.UserID(); current {
	case userID:
		return nil
	case "":
	default:
		return ErrAlreadyBound
	}

	c.bind(userID)
	set, ok := h.byUser[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.byUser[userID] = set
	}
	set[c] = struct{}{}
	return nil
}

// Remove drops a connection and closes its outbound channel. It is safe to
// call any number of times, for unknown connections, and from any goroutine.
func (h *Hub) Remove(c *Conn) {
	if c == nil {
		return
	}

	h.mu.Lock()
	_, existed := h.conns[c]
	delete(h.conns, c)
	if userID := c.UserID(); userID != "" {
		if set, ok := h.byUser[userID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.byUser, userID)
			}
		}
	}
	h.mu.Unlock()

	c.close()
	if existed {
		h.logger.Debug("push connection removed", "conn_id", c.id, "user_id", c.UserID())
	}
}

// Notify pushes a device_update for snapshot to every live connection of
// every owner of deviceID. Owner lookup failures are logged, not returned.
func (h *Hub) Notify(ctx context.Context, deviceID string, snapshot state.Snapshot) {
	owners, err := h.owners.OwnersOf(ctx, deviceID)
	if err != nil {
		h.logger.Warn("fan-out skipped: owner lookup failed", "device_id", deviceID, "error", err)
		return
	}
	if len(owners) == 0 {
		return
	}

	frame, err := json.Marshal(newDeviceUpdate(deviceID, snapshot))
	if err != nil {
		h.logger.Error("failed to encode device update", "device_id", deviceID, "error", err)
		return
	}

	delivered, skipped := 0, 0
	for _, owner := range owners {
		for _, c := range h.connectionsOf(owner) {
			if c.trySend(frame) {
				delivered++
			} else {
				skipped++
			}
		}
	}
	if delivered > 0 || skipped > 0 {
		h.logger.Debug("device update fanned out",
			"device_id", deviceID,
			"delivered", delivered,
			"skipped", skipped,
		)
	}
}

// NotifyUser pushes a notification message to every live connection of
// userID and returns how many accepted it.
func (h *Hub) NotifyUser(userID, message string) int {
	frame, err := json.Marshal(Message{Type: TypeNotification, Message: message})
	if err != nil {
		return 0
	}

	delivered := 0
	for _, c := range h.connectionsOf(userID) {
		if c.trySend(frame) {
			delivered++
		}
	}
	return delivered
}

// connectionsOf copies the user's current connections.
func (h *Hub) connectionsOf(userID string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.byUser[userID]
	conns := make([]*Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	return conns
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// UserConnectionCount returns the number of bound connections for a user.
func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

// Close removes every connection; socket write pumps then send a close frame
// and exit.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.Remove(c)
	}
}
