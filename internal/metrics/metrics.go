// Package metrics declares the Prometheus collectors shared by the services
// and the HTTP middleware that records request counts and latency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_http_requests_total",
			Help: "Total HTTP requests by method, route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "church_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// PermissionChecks counts resolver decisions by result ("allow" or "deny").
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_permission_checks_total",
			Help: "Permission checks by module, action and result.",
		},
		[]string{"module", "action", "result"},
	)

	// RoleCacheRefreshes counts custom role cache reloads by outcome.
	RoleCacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_role_cache_refreshes_total",
			Help: "Custom role cache refreshes by outcome.",
		},
		[]string{"outcome"},
	)

	// DocumentLoads counts document loads by collection and outcome
	// ("found", "created", "fallback").
	DocumentLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_document_loads_total",
			Help: "Effective document loads by collection and outcome.",
		},
		[]string{"collection", "outcome"},
	)

	// DocumentWrites counts document writes by collection and outcome ("ok", "error").
	DocumentWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_document_writes_total",
			Help: "Document writes by collection and outcome.",
		},
		[]string{"collection", "outcome"},
	)

	// InboxRefreshes counts unread counter reconciliations by outcome.
	InboxRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_inbox_refreshes_total",
			Help: "Inbox unread count refreshes by outcome.",
		},
		[]string{"outcome"},
	)

	// OpenInboxes tracks sessions with an active inbox.
	OpenInboxes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "church_open_inboxes",
			Help: "Number of open notification inboxes.",
		},
	)
)

// Outcome maps an error to the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Middleware records request count and duration per route pattern.
// Unmatched requests are labelled "unmatched" to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
