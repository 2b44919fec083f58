package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/domain"
)

// Handler upgrades HTTP requests to websocket connections and runs the
// handshake: authenticate, register with the hub, auto-join rooms,
// acknowledge, then start the pumps. Failed authentication closes the
// transport immediately with a descriptive reason — a connection never
// lingers half-open.
type Handler struct {
	hub      *Hub
	auth     *Authenticator
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(hub *Hub, auth *Authenticator, logger *zap.Logger) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The HTTP clients are served from other origins in
			// development; room access is enforced per identity.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP handles GET /ws?token=…  or  GET /ws?patientId=… .
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	q := r.URL.Query()
	identity, err := h.auth.Authenticate(r.Context(), q.Get("token"), q.Get("patientId"))
	if err != nil {
		reason := "authentication failed: missing or invalid credentials"
		if errors.Is(err, domain.ErrSessionExpired) {
			reason = "authentication failed: session expired"
		}
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = conn.Close()
		return
	}

	client := &Client{
		id:       uuid.New().String(),
		identity: identity,
		hub:      h.hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		rooms:    make(map[string]struct{}),
		logger:   h.logger,
	}
	h.hub.Register(client)

	client.enqueue(mustEncode(MsgAuthenticated, map[string]any{
		"socket_id":     client.id,
		"identity_type": identity.Type,
		"identity_id":   identity.ID,
		"rooms":         h.hub.Rooms(client),
	}))

	go client.writePump()
	go client.readPump()
}
