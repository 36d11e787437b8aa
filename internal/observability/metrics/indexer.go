package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type IndexerMetrics struct {
	registry *prometheus.Registry

	reindexTotal    *prometheus.CounterVec
	reindexDuration *prometheus.HistogramVec
	reindexInFlight prometheus.Gauge
	indexedChunks   *prometheus.HistogramVec
}

func NewIndexerMetrics(service string) *IndexerMetrics {
	registry := prometheus.NewRegistry()

	reindexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tbr",
			Subsystem: "indexer",
			Name:      "section_reindex_total",
			Help:      "Total reindexed sections by status.",
		},
		[]string{"service", "status"},
	)
	reindexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tbr",
			Subsystem: "indexer",
			Name:      "section_reindex_duration_seconds",
			Help:      "Section reindex duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	reindexInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tbr",
			Subsystem: "indexer",
			Name:      "section_reindex_in_flight",
			Help:      "Number of in-flight section reindex jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tbr",
			Subsystem: "indexer",
			Name:      "indexed_chunks",
			Help:      "Distribution of chunks written per reindexed section.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service"},
	)

	registry.MustRegister(reindexTotal, reindexDuration, reindexInFlight, indexedChunks)

	return &IndexerMetrics{
		registry:        registry,
		reindexTotal:    reindexTotal,
		reindexDuration: reindexDuration,
		reindexInFlight: reindexInFlight,
		indexedChunks:   indexedChunks,
	}
}

func (m *IndexerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IndexerMetrics) StartSection() {
	m.reindexInFlight.Inc()
}

func (m *IndexerMetrics) FinishSection(service string, duration time.Duration, err error) {
	m.reindexInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.reindexTotal.WithLabelValues(service, status).Inc()
	m.reindexDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *IndexerMetrics) ObserveIndexedChunks(service string, count int) {
	if count < 0 {
		return
	}
	m.indexedChunks.WithLabelValues(service).Observe(float64(count))
}
