package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal          *prometheus.CounterVec
	retrievedChunks       *prometheus.HistogramVec
	confidence            *prometheus.HistogramVec
	queryDuration         *prometheus.HistogramVec
	noContextTotal        *prometheus.CounterVec
	degradedTotal         *prometheus.CounterVec
	consistencyFaultTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tbr",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tbr",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tbr",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tbr",
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Total answered queries.",
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tbr",
			Subsystem: "retrieval",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per answered query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		},
		[]string{"service"},
	)
	confidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tbr",
			Subsystem: "retrieval",
			Name:      "confidence",
			Help:      "Distribution of confidence scores per answered query.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tbr",
			Subsystem: "retrieval",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tbr",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total answered queries without any retrieved chunks.",
		},
		[]string{"service"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tbr",
			Subsystem: "retrieval",
			Name:      "degraded_total",
			Help:      "Total answered queries served with a degraded dependency.",
		},
		[]string{"service", "dependency"},
	)
	consistencyFaultTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tbr",
			Subsystem: "retrieval",
			Name:      "consistency_faults_total",
			Help:      "Total hits dropped because the catalog had no matching section.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		retrievedChunks,
		confidence,
		queryDuration,
		noContextTotal,
		degradedTotal,
		consistencyFaultTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		queriesTotal:          queriesTotal,
		retrievedChunks:       retrievedChunks,
		confidence:            confidence,
		queryDuration:         queryDuration,
		noContextTotal:        noContextTotal,
		degradedTotal:         degradedTotal,
		consistencyFaultTotal: consistencyFaultTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/sections/"):
		return "/v1/sections/{section_id}/reindex"
	case strings.HasPrefix(path, "/docs/"):
		return "/docs/{module_id}/{section_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordQuery(service string, chunkCount int, confidence float64, duration time.Duration) {
	m.queriesTotal.WithLabelValues(service).Inc()
	m.retrievedChunks.WithLabelValues(service).Observe(float64(chunkCount))
	m.confidence.WithLabelValues(service).Observe(confidence)
	m.queryDuration.WithLabelValues(service).Observe(duration.Seconds())

	if chunkCount == 0 {
		m.noContextTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordDegradation(service, dependency string) {
	if dependency == "" {
		dependency = "unknown"
	}
	m.degradedTotal.WithLabelValues(service, dependency).Inc()
}

func (m *HTTPServerMetrics) RecordConsistencyFaults(service string, dropped int) {
	if dropped <= 0 {
		return
	}
	m.consistencyFaultTotal.WithLabelValues(service).Add(float64(dropped))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
