package handler

import (
	"net/http"

	"github.com/clinicq/patient-queue/internal/notify"
	"github.com/clinicq/patient-queue/internal/ws"
)

// MetricsHandler serves a human-readable JSON snapshot of live state.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	q   *notify.IntentQueue
	hub *ws.Hub
}

func NewMetricsHandler(q *notify.IntentQueue, hub *ws.Hub) *MetricsHandler {
	return &MetricsHandler{q: q, hub: hub}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Live queue depths and connection counts
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	call, ready, confirm := h.q.Depths()
	respondJSON(w, http.StatusOK, map[string]any{
		"notification_queue_depth": map[string]int{
			"call_now":     call,
			"get_ready":    ready,
			"confirmation": confirm,
			"total":        call + ready + confirm,
		},
		"connections": map[string]int{
			"total":    h.hub.ClientCount(),
			"staff":    h.hub.RoomSize(ws.RoomStaff),
			"patients": h.hub.RoomSize(ws.RoomPatients),
		},
	})
}
