package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/quickmed/opd-scheduling/internal/clinic"
)

type RouterConfig struct {
	Service *clinic.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(chimiddleware.Recoverer)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointments
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Put("/appointments/{id}/start", startAppointmentHandler(cfg.Service))
	r.Put("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))
	r.Put("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))

	// Token queue
	r.Post("/tokens", issueTokenHandler(cfg.Service))
	r.Get("/queue", queueHandler(cfg.Service))
	r.Put("/tokens/call-next", callNextTokenHandler(cfg.Service))
	r.Put("/tokens/{id}/call", callTokenHandler(cfg.Service))
	r.Put("/tokens/{id}/complete", completeTokenHandler(cfg.Service))
	r.Put("/tokens/{id}/cancel", cancelTokenHandler(cfg.Service))
	r.Get("/tokens/summary", tokenSummaryHandler(cfg.Service))
	r.Get("/patients/{id}/tokens", patientTokensHandler(cfg.Service))

	// Recommendations
	r.Post("/recommendations", recommendHandler(cfg.Service))

	return r
}
