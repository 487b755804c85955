// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_submissions_total",
			Help: "Total number of application submissions by partner and integration path",
		},
		[]string{"partner", "path"},
	)

	SubmissionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_submission_failures_total",
			Help: "Total number of failed submissions by partner and error code",
		},
		[]string{"partner", "error_code"},
	)

	AdapterRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "integration_adapter_request_duration_seconds",
			Help: "Duration of partner adapter calls in seconds",
		},
		[]string{"partner", "operation"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_webhook_events_total",
			Help: "Total number of accepted webhook events by partner and canonical status",
		},
		[]string{"partner", "status"},
	)

	WebhookRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_webhook_rejections_total",
			Help: "Total number of rejected webhook deliveries by partner and reason",
		},
		[]string{"partner", "reason"},
	)
)
