// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_registrations_total",
			Help: "Total number of successful student registrations",
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_uploads_total",
			Help: "Total number of accepted submission uploads",
		},
		[]string{"school"},
	)

	ScoresAssignedHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portal_assigned_score",
			Help:    "Distribution of admin-assigned scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
