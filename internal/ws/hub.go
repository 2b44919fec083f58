package ws

import (
	"sync"

	"go.uber.org/zap"
)

// HubHooks carries the metric callbacks injected by main. Using a
// struct keeps the hub constructor signature clean and the hub itself
// metrics-agnostic.
type HubHooks struct {
	OnConnect    func()
	OnDisconnect func()
	OnBroadcast  func(room string)
}

func (h *HubHooks) fill() {
	if h.OnConnect == nil {
		h.OnConnect = func() {}
	}
	if h.OnDisconnect == nil {
		h.OnDisconnect = func() {}
	}
	if h.OnBroadcast == nil {
		h.OnBroadcast = func(string) {}
	}
}

// Hub is the connection registry and room router. It owns every live
// Client and the room membership sets; no other component mutates them.
// All methods are safe under concurrent access from independent
// connection handlers.
//
// A lifecycle-scoped instance is created in main and injected wherever
// needed — never accessed through package globals — so tests get clean
// per-test hubs.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client              // by socket id
	rooms   map[string]map[string]*Client   // room → socket id → client
	hooks   HubHooks
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger, hooks HubHooks) *Hub {
	hooks.fill()
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		hooks:   hooks,
		logger:  logger,
	}
}

// Register adds an authenticated client and joins it to its standard
// rooms. Called once per connection, after the handshake succeeds.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	for _, room := range c.identity.AutoRooms() {
		h.joinLocked(c, room)
	}
	h.mu.Unlock()
	h.hooks.OnConnect()

	h.logger.Info("connection registered",
		zap.String("socket_id", c.id),
		zap.String("identity_type", string(c.identity.Type)),
		zap.String("identity_id", c.identity.ID),
	)
}

// Unregister removes the client from the registry and from every room it
// joined, and closes its send channel. Membership teardown is synchronous
// with the disconnect so no later dispatch can reach a stale handle.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	c.markClosed()
	close(c.send)
	h.mu.Unlock()
	h.hooks.OnDisconnect()

	h.logger.Info("connection unregistered", zap.String("socket_id", c.id))
}

// Join adds the client to a named room. Access policy is enforced by the
// caller (command handler); the hub only tracks membership. A client that
// has already been unregistered is refused, so an in-flight join can
// never resurrect a stale handle into a room.
func (h *Hub) Join(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return false
	}
	h.joinLocked(c, room)
	return true
}

// Leave removes the client from a named room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

// Rooms returns a snapshot of the client's current room names.
func (h *Hub) Rooms(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Broadcast sends the message to every connection currently joined to
// the room. Best-effort, at-most-once: a client whose send buffer is
// full misses the message and reconciles through the read APIs.
func (h *Hub) Broadcast(room string, message []byte) {
	h.mu.RLock()
	members := h.rooms[room]
	for _, c := range members {
		select {
		case c.send <- message:
		default:
			h.logger.Debug("send buffer full, dropping message",
				zap.String("socket_id", c.id),
				zap.String("room", room),
			)
		}
	}
	h.mu.RUnlock()
	h.hooks.OnBroadcast(room)
}

// Disconnect force-closes a connection by socket id. Room memberships
// are torn down synchronously here; the reason travels to the write
// pump, which emits the close frame and shuts the transport.
func (h *Hub) Disconnect(socketID, reason string) {
	h.mu.RLock()
	c, ok := h.clients[socketID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.closeReason = reason
	h.Unregister(c)
}

// ClientCount reports the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize reports the number of connections joined to a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// joinLocked and leaveLocked require h.mu to be held for writing.

func (h *Hub) joinLocked(c *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][c.id] = c
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}
