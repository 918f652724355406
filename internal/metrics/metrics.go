package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_hub_http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maintenance_hub_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RequestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_hub_requests_created_total",
			Help: "Maintenance requests created, by priority.",
		},
		[]string{"priority"},
	)

	NumberingRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "maintenance_hub_request_number_retries_total",
			Help: "Request number collisions that forced a renumbering.",
		},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_hub_status_transitions_total",
			Help: "Status transitions applied, by target status.",
		},
		[]string{"status"},
	)

	Assignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_hub_assignments_total",
			Help: "Assignments applied, by mode (manual or auto).",
		},
		[]string{"mode"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_hub_notification_failures_total",
			Help: "Assignment notifications that failed, by channel.",
		},
		[]string{"channel"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_hub_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by route.",
		},
		[]string{"route"},
	)
)
