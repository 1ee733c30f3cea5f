// Package metrics provides Prometheus metrics for akdrive.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Backend request metrics
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "akdrive_backend_requests_total",
			Help: "Total number of requests sent to the drive backend",
		},
		[]string{"method", "route", "status"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "akdrive_backend_request_duration_seconds",
			Help:    "Drive backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// View metrics
	reloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "akdrive_view_reloads_total",
			Help: "Total number of view reloads by outcome",
		},
		[]string{"view", "outcome"},
	)

	staleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "akdrive_view_stale_responses_total",
			Help: "List responses discarded because a newer reload was issued",
		},
		[]string{"view"},
	)

	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "akdrive_actions_total",
			Help: "Total number of item actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	// Session metrics
	signOutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "akdrive_sign_outs_total",
			Help: "Total number of sign-outs by reason",
		},
		[]string{"reason"},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "akdrive_auth_attempts_total",
			Help: "Total number of sign-in attempts",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Backend records drive backend requests.
type Backend struct{}

// ObserveRequest records one backend request. status 0 means no response.
func (Backend) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	backendRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	backendRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func RecordReload(view string, err error) {
	reloadsTotal.WithLabelValues(view, outcome(err)).Inc()
}

func RecordStaleResponse(view string) {
	staleResponsesTotal.WithLabelValues(view).Inc()
}

func RecordAction(action string, err error) {
	actionsTotal.WithLabelValues(action, outcome(err)).Inc()
}

func RecordSignOut(reason string) {
	signOutsTotal.WithLabelValues(reason).Inc()
}

func RecordAuthAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
