// Package httpapi is the HTTP boundary adapter (spec.md §4.11): it
// translates request parameters into orchestrator calls and streams back
// whichever rendered artifact or proxied asset the route names. It never
// classifies, selects, parses, renders or signs anything itself.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pkgrelay",
		Name:      "request_duration_seconds",
		Help:      "Latency of gateway HTTP responses.",
	}, []string{"route", "status"})

	responseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pkgrelay",
		Name:      "response_size_bytes",
		Help:      "Size of gateway HTTP responses.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
	}, []string{"route", "status"})
)

// metricsMiddleware emits the per-response size/latency/status background
// log spec.md §5 requires, both to Prometheus and to the structured logger.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		status := strconv.Itoa(rec.status)
		elapsed := time.Since(start)

		requestDuration.WithLabelValues(route, status).Observe(elapsed.Seconds())
		responseSize.WithLabelValues(route, status).Observe(float64(rec.size))

		logrus.WithFields(logrus.Fields{
			"route":    route,
			"status":   rec.status,
			"size":     rec.size,
			"duration": elapsed,
		}).Info("request served")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
