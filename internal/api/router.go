package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meditrack/scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/slots", func(r chi.Router) {
		r.Post("/generate", generateSlotsHandler(cfg.Service))
		r.Get("/available", availableSlotsHandler(cfg.Service))
		r.Patch("/{id}", updateSlotHandler(cfg.Service))
		r.Delete("/{id}", deleteSlotHandler(cfg.Service))
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookSlotHandler(cfg.Service))
		r.Get("/", listAppointmentsHandler(cfg.Service))
		r.Get("/{id}", getAppointmentHandler(cfg.Service))
		r.Post("/{id}/status", updateStatusHandler(cfg.Service))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	})

	r.Get("/status-summary", statusSummaryHandler(cfg.Service))
	r.Get("/dashboard", dashboardHandler(cfg.Service))

	r.Route("/doctors", func(r chi.Router) {
		r.Post("/", createDoctorHandler(cfg.Service))
		r.Get("/", listDoctorsHandler(cfg.Service))
	})

	r.Route("/patients", func(r chi.Router) {
		r.Post("/", createPatientHandler(cfg.Service))
		r.Get("/{id}", getPatientHandler(cfg.Service))
	})

	return r
}
