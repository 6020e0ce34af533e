// Package metrics provides Prometheus metrics for the content admin console.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "content_admin"

var (
	// GatewayCallsTotal counts gateway calls by operation, target and status.
	GatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Total number of gateway calls",
		},
		[]string{"operation", "target", "status"},
	)

	// GatewayCallDuration measures gateway call duration.
	GatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Duration of gateway calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "target"},
	)

	// SignInAttemptsTotal counts sign-in attempts by result.
	SignInAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_in_attempts_total",
			Help:      "Total number of sign-in attempts",
		},
		[]string{"result"},
	)

	// UploadedBytes observes the size of stored uploads.
	UploadedBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes",
			Help:      "Size of uploaded objects",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"bucket"},
	)

	// HTTPRequestsTotal counts console requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of console HTTP requests",
		},
		[]string{"method", "code"},
	)

	// ActiveConsoles tracks the number of live browser consoles.
	ActiveConsoles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_consoles",
			Help:      "Number of live browser consoles",
		},
	)

	// CheckStatus is 1 when the last diagnostic check of a backend passed.
	CheckStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "diagnostic_check_status",
			Help:      "Last diagnostic result per check (1 = ok, 0 = failed or timed out)",
		},
		[]string{"check"},
	)
)

// RecordGatewayCall records one gateway call.
func RecordGatewayCall(operation, target string, err error, started time.Time) {
	GatewayCallsTotal.WithLabelValues(operation, target, status(err)).Inc()
	GatewayCallDuration.WithLabelValues(operation, target).Observe(time.Since(started).Seconds())
}

// RecordSignIn records the result of a sign-in attempt.
func RecordSignIn(err error) {
	SignInAttemptsTotal.WithLabelValues(status(err)).Inc()
}

// RecordCheck records a diagnostic check.
func RecordCheck(name string, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	CheckStatus.WithLabelValues(name).Set(v)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
