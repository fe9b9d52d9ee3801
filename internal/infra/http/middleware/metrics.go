package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inline syncs answer after the whole pipeline ran, so the upper buckets
// reach into minutes.
var durationBuckets = []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60, 180, 600}

var (
	apiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsync_http_requests_total",
			Help: "Requests served by the leadsync API, by route and status",
		},
		[]string{"method", "route", "status"},
	)

	apiLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadsync_http_request_duration_seconds",
			Help:    "Time to answer a leadsync API request, inline syncs included",
			Buckets: durationBuckets,
		},
		[]string{"method", "route"},
	)

	inFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadsync_http_in_flight_requests",
			Help: "API requests currently being served",
		},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Metrics records count, latency and concurrency per chi route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		route := routePattern(r)
		apiRequests.WithLabelValues(r.Method, route, strconv.Itoa(sr.status)).Inc()
		apiLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps campaign ids out of the label set.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
