package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/clinicq/patient-queue/internal/api/middleware"
	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/service"
)

// QueueHandler serves the patron-facing queue endpoints.
type QueueHandler struct {
	svc    *service.QueueService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.QueueService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// CheckIn handles POST /api/v1/checkin
//
// @Summary  Check a patient into the waiting queue
// @Tags     queue
// @Accept   json
// @Produce  json
// @Param    request  body      domain.CheckInRequest  true  "check-in payload"
// @Success  201      {object}  domain.QueueEntry
// @Failure  409      {object}  map[string]string
// @Failure  422      {object}  map[string]string
// @Router   /api/v1/checkin [post]
func (h *QueueHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entry, err := h.svc.CheckIn(r.Context(), req)
	if err != nil {
		h.logger.Warn("check-in failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// Position handles GET /api/v1/patients/{id}/position
//
// @Summary  Get a patient's current position and wait estimate
// @Tags     queue
// @Produce  json
// @Param    id   path      string  true  "patron ID"
// @Success  200  {object}  domain.QueueStatus
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/patients/{id}/position [get]
func (h *QueueHandler) Position(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.svc.Position(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Queue handles GET /api/v1/queue
//
// @Summary  List the active queue ordered by position
// @Tags     queue
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/queue [get]
func (h *QueueHandler) Queue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Queue(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load queue")
		return
	}
	if entries == nil {
		entries = []domain.QueueEntryView{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"queue": entries, "total": len(entries)})
}

// Stats handles GET /api/v1/queue/stats
//
// @Summary  Queue counters and wait-time statistics
// @Tags     queue
// @Produce  json
// @Success  200  {object}  domain.QueueStats
// @Router   /api/v1/queue/stats [get]
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
