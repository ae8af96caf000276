package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinic_http_requests_total",
		Help: "Number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinic_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// SlotsGenerated counts slots produced by the generator.
	SlotsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_slots_generated_total",
		Help: "Number of availability slots generated.",
	})

	// BookingConflicts counts appointment creations rejected because the
	// slot was already claimed.
	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_booking_conflicts_total",
		Help: "Number of bookings rejected due to an already reserved slot.",
	})
)
