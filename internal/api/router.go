package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/api/handler"
	apimw "github.com/notifyhub/weekly-dispatch/internal/api/middleware"
	"github.com/notifyhub/weekly-dispatch/internal/service"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Dispatcher handler.Dispatcher
	Schedules  *service.ScheduleService
	DB         handler.Pinger
	Gatherer   prometheus.Gatherer
	CronSecret string
	Logger     *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(d.Logger, "/health", "/ready", "/metrics"))

	// --- handler instances ---
	dh := handler.NewDispatchHandler(d.Dispatcher, d.Logger)
	sh := handler.NewScheduleHandler(d.Schedules, d.Logger)
	mh := handler.NewMetricsHandler(d.Dispatcher)
	hh := handler.NewHealthHandler(d.DB)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Get("/ready", hh.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimw.BearerSecret(d.CronSecret, d.Logger))

		r.Post("/cron/dispatch", dh.Trigger)
		r.Get("/runs/last", mh.LastRun)

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/schedule", sh.GetSchedule)
			r.Put("/schedule", sh.PutSchedule)
			r.Get("/outcomes", sh.ListOutcomes)
			r.Post("/dispatch", dh.DispatchNow)
		})
	})

	return r
}
