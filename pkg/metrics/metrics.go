// Package metrics exposes the Prometheus instruments of the report service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alignment"

var (
	// SubmissionsTotal counts normalized submissions by mode and schema version.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submissions received, by validation mode and detected schema version",
		},
		[]string{"mode", "version"},
	)

	// DefaultedTotal counts pillar fields the normalizer had to fabricate.
	DefaultedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "defaulted_fields_total",
			Help:      "Pillar scores or ranks substituted with defaults",
		},
		[]string{"pillar", "field"},
	)

	// ReportsTotal counts report builds by final job status.
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Report builds by outcome",
		},
		[]string{"status"},
	)

	// RenderDuration observes HTML to PDF rendering, retries included.
	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "PDF rendering duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
		},
		[]string{"outcome"},
	)

	// DeliveryTotal counts email delivery attempts.
	DeliveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Report email deliveries by outcome",
		},
		[]string{"outcome"},
	)

	// HTTPRequestDuration observes request handling time.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordSubmission counts one submission under every detected version, or
// "unknown" when none matched.
func RecordSubmission(mode string, versions []string) {
	if len(versions) == 0 {
		SubmissionsTotal.WithLabelValues(mode, "unknown").Inc()
		return
	}
	for _, v := range versions {
		SubmissionsTotal.WithLabelValues(mode, v).Inc()
	}
}

// RecordDefaulted counts one fabricated field ("scores" or "ranks").
func RecordDefaulted(pillar, field string) {
	DefaultedTotal.WithLabelValues(pillar, field).Inc()
}

// RecordReport counts a finished build.
func RecordReport(status string) {
	ReportsTotal.WithLabelValues(status).Inc()
}

// RecordRender observes a render attempt sequence.
func RecordRender(outcome string, d time.Duration) {
	RenderDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordDelivery counts an email attempt.
func RecordDelivery(outcome string) {
	DeliveryTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest observes one handled request.
func RecordHTTPRequest(method, path, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}
