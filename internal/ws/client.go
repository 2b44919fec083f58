package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // must be less than pongWait
	maxMessageSize = 1024
	sendBuffer     = 64
)

// Client is one live, authenticated connection. Created by the handler
// after a successful handshake; destroyed when either pump exits.
// The rooms set is owned by the hub and only touched under its lock.
type Client struct {
	id       string
	identity Identity
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	rooms    map[string]struct{}
	logger   *zap.Logger

	// closeReason is set before the hub closes the send channel; the
	// write pump reads it only after observing the close, so the channel
	// provides the ordering.
	closeReason string

	// sendMu and closed guard enqueue against the hub closing the send
	// channel while the read pump is still finishing an in-flight
	// command. An enqueue after unregister is dropped, never a panic.
	sendMu sync.Mutex
	closed bool
}

// ID returns the socket identifier.
func (c *Client) ID() string { return c.id }

// Identity returns the identity bound at handshake time.
func (c *Client) Identity() Identity { return c.identity }

// enqueue hands a message to the write pump without blocking; a full
// buffer drops the message (at-most-once, same policy as broadcast).
// Messages arriving after unregister are dropped.
func (c *Client) enqueue(message []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		c.logger.Debug("dropping message for closed connection", zap.String("socket_id", c.id))
		return
	}
	select {
	case c.send <- message:
	default:
		c.logger.Debug("send buffer full, dropping message", zap.String("socket_id", c.id))
	}
}

// markClosed stops any further enqueue before the hub closes the send
// channel. Called by the hub during unregister.
func (c *Client) markClosed() {
	c.sendMu.Lock()
	c.closed = true
	c.sendMu.Unlock()
}

// CloseWithReason writes a close frame with a human-readable reason and
// closes the transport. The read pump then unblocks and unregisters.
func (c *Client) CloseWithReason(reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
	_ = c.conn.Close()
}

// readPump reads commands from the connection until it drops, then
// unregisters the client. Runs on the connection's handler goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("unexpected close", zap.String("socket_id", c.id), zap.Error(err))
			}
			return
		}
		c.handleCommand(raw)
	}
}

// writePump drains the send channel and keeps the connection alive with
// periodic pings. One goroutine per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel on unregister.
				frame := []byte{}
				if c.closeReason != "" {
					frame = websocket.FormatCloseMessage(websocket.ClosePolicyViolation, c.closeReason)
				}
				_ = c.conn.WriteMessage(websocket.CloseMessage, frame)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleCommand dispatches one inbound frame. Acknowledgements and
// errors go to this connection only, never to a room.
func (c *Client) handleCommand(raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.enqueue(mustEncode(MsgError, map[string]string{"message": "malformed command"}))
		return
	}

	switch cmd.Type {
	case CmdJoinRoom:
		c.joinRoom(cmd.Room)
	case CmdLeaveRoom:
		c.leaveRoom(cmd.Room)
	case CmdGetRooms:
		c.enqueue(mustEncode(MsgCurrentRooms, map[string]any{"rooms": c.hub.Rooms(c)}))
	case CmdPing:
		c.enqueue(mustEncode(MsgPong, nil))
	default:
		c.enqueue(mustEncode(MsgError, map[string]string{"message": "unknown command: " + cmd.Type}))
	}
}

func (c *Client) joinRoom(room string) {
	if room == "" {
		c.enqueue(mustEncode(MsgError, map[string]string{"message": "room is required"}))
		return
	}
	if !c.identity.CanJoin(room) {
		c.logger.Warn("room join denied",
			zap.String("socket_id", c.id),
			zap.String("room", room),
			zap.String("identity_type", string(c.identity.Type)),
		)
		c.enqueue(mustEncode(MsgError, map[string]string{
			"reason":  "access_denied",
			"message": "not allowed to join room " + room,
		}))
		return
	}
	if !c.hub.Join(c, room) {
		// Connection was unregistered while the frame was in flight;
		// the write pump is already shutting the transport down.
		return
	}
	c.enqueue(mustEncode(MsgRoomJoined, map[string]string{"room": room}))
}

func (c *Client) leaveRoom(room string) {
	if c.identity.Type == IdentityPatron && room == PatronRoom(c.identity.ID) {
		c.enqueue(mustEncode(MsgError, map[string]string{
			"reason":  "access_denied",
			"message": "cannot leave your private room",
		}))
		return
	}
	c.hub.Leave(c, room)
	c.enqueue(mustEncode(MsgRoomLeft, map[string]string{"room": room}))
}
