package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/clinicq/patient-queue/internal/api/middleware"
	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/repository"
	"github.com/clinicq/patient-queue/internal/service"
	"github.com/clinicq/patient-queue/internal/ws"
)

// StaffHandler serves the authenticated front-desk endpoints.
type StaffHandler struct {
	queue    *service.QueueService
	auth     *service.AuthService
	attempts repository.AttemptRepository
	hub      *ws.Hub
	logger   *zap.Logger
}

func NewStaffHandler(
	queue *service.QueueService,
	auth *service.AuthService,
	attempts repository.AttemptRepository,
	hub *ws.Hub,
	logger *zap.Logger,
) *StaffHandler {
	return &StaffHandler{queue: queue, auth: auth, attempts: attempts, hub: hub, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/staff/login
//
// @Summary  Authenticate a staff member and create a session
// @Tags     staff
// @Accept   json
// @Produce  json
// @Param    request  body      loginRequest  true  "credentials"
// @Success  200      {object}  domain.StaffSession
// @Failure  401      {object}  map[string]string
// @Router   /api/v1/staff/login [post]
func (h *StaffHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("username", req.Username),
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Logout handles POST /api/v1/staff/logout
//
// @Summary   Invalidate the current staff session
// @Tags      staff
// @Security  BearerAuth
// @Success   204
// @Router    /api/v1/staff/logout [post]
func (h *StaffHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := apimw.GetSession(r.Context())
	if session != nil {
		if err := h.auth.Logout(r.Context(), session.Token); err != nil {
			h.logger.Warn("logout failed", zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// CallNext handles POST /api/v1/staff/call-next
//
// An empty queue is a 200 with success=false, not an error: the front
// desk pressing "next" on an empty line is an expected outcome.
//
// @Summary   Call the next waiting patient
// @Tags      staff
// @Security  BearerAuth
// @Produce   json
// @Success   200  {object}  domain.CallNextResult
// @Router    /api/v1/staff/call-next [post]
func (h *StaffHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	result, err := h.queue.CallNext(r.Context())
	if err != nil {
		h.logger.Error("call next failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to call next patient")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Complete handles POST /api/v1/staff/patients/{id}/complete
//
// @Summary   Mark a called patient's service as completed
// @Tags      staff
// @Security  BearerAuth
// @Param     id  path  string  true  "patron ID"
// @Success   204
// @Failure   404  {object}  map[string]string
// @Router    /api/v1/staff/patients/{id}/complete [post]
func (h *StaffHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.queue.MarkCompleted(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NoShow handles POST /api/v1/staff/patients/{id}/no-show
//
// @Summary   Mark a patient as a no-show and remove them from the line
// @Tags      staff
// @Security  BearerAuth
// @Param     id  path  string  true  "patron ID"
// @Success   204
// @Failure   404  {object}  map[string]string
// @Router    /api/v1/staff/patients/{id}/no-show [post]
func (h *StaffHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.queue.MarkNoShow(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Disconnect handles POST /api/v1/staff/connections/{socketId}/disconnect
//
// Administrative force-disconnect of a websocket connection. Admin role
// only; disconnecting an unknown socket id is a no-op.
//
// @Summary   Force-disconnect a websocket connection
// @Tags      staff
// @Security  BearerAuth
// @Param     socketId  path  string  true  "socket ID"
// @Success   204
// @Failure   403  {object}  map[string]string
// @Router    /api/v1/staff/connections/{socketId}/disconnect [post]
func (h *StaffHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	session := apimw.GetSession(r.Context())
	if session == nil || session.Role != domain.RoleAdmin {
		mapError(w, domain.ErrAccessDenied)
		return
	}
	socketID := chi.URLParam(r, "socketId")
	h.hub.Disconnect(socketID, "disconnected by administrator")
	h.logger.Info("connection force-disconnected",
		zap.String("socket_id", socketID),
		zap.String("by", session.Username),
	)
	w.WriteHeader(http.StatusNoContent)
}

// Attempts handles GET /api/v1/staff/notifications?limit=50
//
// @Summary   Recent notification delivery attempts, newest first
// @Tags      staff
// @Security  BearerAuth
// @Produce   json
// @Param     limit  query     int  false  "max rows (default 50, cap 500)"
// @Success   200    {object}  map[string]any
// @Router    /api/v1/staff/notifications [get]
func (h *StaffHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}
	attempts, err := h.attempts.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list notification attempts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}
