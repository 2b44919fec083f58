package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/api/handler"
	apimw "github.com/clinicq/patient-queue/internal/api/middleware"
	"github.com/clinicq/patient-queue/internal/notify"
	"github.com/clinicq/patient-queue/internal/repository"
	"github.com/clinicq/patient-queue/internal/service"
	"github.com/clinicq/patient-queue/internal/ws"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	queueSvc *service.QueueService,
	authSvc *service.AuthService,
	attempts repository.AttemptRepository,
	intents *notify.IntentQueue,
	hub *ws.Hub,
	wsHandler *ws.Handler,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	qh := handler.NewQueueHandler(queueSvc, logger)
	sh := handler.NewStaffHandler(queueSvc, authSvc, attempts, hub, logger)
	mh := handler.NewMetricsHandler(intents, hub)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Websocket handshake: ?token=… for staff, ?patientId=… for patrons.
	r.Get("/ws", wsHandler.ServeHTTP)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Public patron surface
		r.Post("/checkin", qh.CheckIn)
		r.Get("/queue", qh.Queue)
		r.Get("/queue/stats", qh.Stats)
		r.Get("/patients/{id}/position", qh.Position)

		r.Route("/staff", func(r chi.Router) {
			// Login is the only unauthenticated staff route.
			r.Post("/login", sh.Login)

			r.Group(func(r chi.Router) {
				r.Use(apimw.StaffAuth(authSvc))
				r.Post("/logout", sh.Logout)
				r.Post("/call-next", sh.CallNext)
				r.Post("/patients/{id}/complete", sh.Complete)
				r.Post("/patients/{id}/no-show", sh.NoShow)
				r.Get("/notifications", sh.Attempts)
				r.Post("/connections/{socketId}/disconnect", sh.Disconnect)
			})
		})

		// JSON snapshot of live state
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
