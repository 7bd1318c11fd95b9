package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/booking/internal/booking"
	"github.com/clinicore/booking/internal/catalog"
	"github.com/clinicore/booking/internal/records"
)

type RouterConfig struct {
	Booking *booking.Service
	Records *records.Service
	Catalog catalog.Repository
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health and metrics endpoints
	if cfg.PgPool != nil && cfg.Redis != nil {
		health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
		r.Get("/health/live", health.Liveness)
		r.Get("/health/ready", health.Readiness)
	}
	r.Handle("/metrics", promhttp.Handler())

	// Booking endpoints
	r.Post("/appointments", bookAppointmentHandler(cfg.Booking))
	r.Get("/appointments/upcoming", upcomingAppointmentsHandler(cfg.Booking))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Booking))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/status", updateStatusHandler(cfg.Booking))

	// Slot endpoints
	r.Get("/slots/available", availableSlotsHandler(cfg.Booking))
	r.Post("/slots", createSlotHandler(cfg.Booking))

	// Patient endpoints
	r.Post("/patients", createPatientHandler(cfg.Catalog))
	r.Get("/patients/{id}", getPatientHandler(cfg.Catalog))
	r.Get("/patients/{id}/appointments", patientAppointmentsHandler(cfg.Booking))

	// Billing and clinical records
	r.Put("/appointments/{id}/billing", setBillingHandler(cfg.Records))
	r.Get("/appointments/{id}/billing", getBillingHandler(cfg.Records))
	r.Post("/appointments/{id}/medical-records", createMedicalRecordHandler(cfg.Records))
	r.Post("/appointments/{id}/lab-orders", orderTestHandler(cfg.Records))
	r.Post("/medical-records/{id}/prescriptions", prescribeHandler(cfg.Records))

	return r
}
