package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cubesat_ticks_total",
			Help: "Total number of simulation ticks.",
		},
	)

	modeChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubesat_mode_changes_total",
			Help: "Total number of satellite mode transitions.",
		},
		[]string{"from", "to"},
	)

	faultInjectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubesat_fault_injections_total",
			Help: "Total number of injected faults.",
		},
		[]string{"kind"},
	)

	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubesat_anomalies_total",
			Help: "Total number of anomaly detections, by classified kind.",
		},
		[]string{"kind"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubesat_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cubesat_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(modeChangesTotal)
	prometheus.MustRegister(faultInjectionsTotal)
	prometheus.MustRegister(anomaliesTotal)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// RecordTick counts one completed simulation tick.
func RecordTick() {
	ticksTotal.Inc()
}

// RecordModeChange counts one satellite mode transition.
func RecordModeChange(from, to string) {
	modeChangesTotal.WithLabelValues(from, to).Inc()
}

// RecordFaultInjection counts one injected fault.
func RecordFaultInjection(kind string) {
	faultInjectionsTotal.WithLabelValues(kind).Inc()
}

// RecordAnomaly counts one classified anomaly detection.
func RecordAnomaly(kind string) {
	anomaliesTotal.WithLabelValues(kind).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(r.URL.Path, r.Method).Observe(duration)
	})
}
