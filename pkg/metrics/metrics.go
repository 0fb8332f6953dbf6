package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yamdb_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Domain events
	ReviewsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yamdb_reviews_created_total",
			Help: "Total number of reviews created",
		},
	)

	ConfirmationCodesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_confirmation_codes_total",
			Help: "Confirmation codes issued, by delivery result",
		},
		[]string{"result"}, // "sent", "failed", "throttled"
	)

	// Mail circuit breaker
	MailBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yamdb_mail_circuit_breaker_state",
			Help: "SMTP circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
