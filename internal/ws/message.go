package ws

import (
	"encoding/json"
	"time"
)

// Server-pushed message types. Domain messages mirror the dispatcher's
// event mapping; the rest acknowledge connection-level commands.
const (
	MsgAuthenticated = "authenticated"
	MsgRoomJoined    = "room-joined"
	MsgRoomLeft      = "room-left"
	MsgCurrentRooms  = "current-rooms"
	MsgPong          = "pong"
	MsgError         = "error"

	MsgQueueUpdate    = "queue_update"
	MsgPositionUpdate = "position_update"
	MsgPatientCalled  = "patient_called"
	MsgGetReady       = "get_ready"
	MsgQueueRefresh   = "queue_refresh"
	MsgNewPatient     = "new_patient"
)

// Client command types accepted after authentication.
const (
	CmdJoinRoom  = "join-room"
	CmdLeaveRoom = "leave-room"
	CmdGetRooms  = "get-rooms"
	CmdPing      = "ping"
)

// Command is the inbound wire frame from a connected client.
type Command struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

// Envelope is the outbound wire frame. Every message carries an
// ISO-8601 timestamp.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// Encode marshals an outbound message, stamping it with the current time.
func Encode(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// mustEncode is Encode for payloads that cannot fail to marshal
// (maps and domain structs). Falls back to a bare envelope on error.
func mustEncode(msgType string, payload any) []byte {
	b, err := Encode(msgType, payload)
	if err != nil {
		b, _ = Encode(msgType, nil)
	}
	return b
}
