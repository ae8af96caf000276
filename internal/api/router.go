package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/booking"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type RouterConfig struct {
	ScheduleService *schedule.Service
	BookingService  *booking.Service
	PgPool          *pgxpool.Pool
	Redis           *redis.Client
	Logger          zerolog.Logger
	Env             string
	Version         string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/professional-schedules", func(r chi.Router) {
		r.Post("/", createProfessionalScheduleHandler(cfg.ScheduleService))
		r.Get("/{id}", getProfessionalScheduleHandler(cfg.ScheduleService))
		r.Get("/{id}/daily-schedules", listDailySchedulesHandler(cfg.ScheduleService))
	})

	r.Route("/daily-schedules", func(r chi.Router) {
		r.Post("/", createDailyScheduleHandler(cfg.ScheduleService))
		r.Get("/{id}", getDailyScheduleHandler(cfg.ScheduleService))
		r.Patch("/{id}", updateDailyScheduleHandler(cfg.ScheduleService))
		r.Post("/{id}/breaks", createBreakHandler(cfg.ScheduleService))
		r.Get("/{id}/breaks", listBreaksHandler(cfg.ScheduleService))
		r.Post("/{id}/slots", generateSlotsHandler(cfg.ScheduleService))
		r.Get("/{id}/slots", listSlotsHandler(cfg.ScheduleService))
	})

	r.Route("/breaks", func(r chi.Router) {
		r.Get("/{id}", getBreakHandler(cfg.ScheduleService))
		r.Patch("/{id}", updateBreakHandler(cfg.ScheduleService))
	})

	r.Route("/slots", func(r chi.Router) {
		r.Get("/{id}", getSlotHandler(cfg.ScheduleService))
		r.Patch("/{id}", updateSlotHandler(cfg.ScheduleService))
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.BookingService))
		r.Get("/{id}", getAppointmentHandler(cfg.BookingService))
		r.Patch("/{id}", updateAppointmentHandler(cfg.BookingService))
		r.Delete("/{id}", deleteAppointmentHandler(cfg.BookingService))
	})

	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.BookingService))
	r.Post("/service-offerings", createServiceOfferingHandler(cfg.BookingService))

	return r
}
