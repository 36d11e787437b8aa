// Package httpadapter exposes the retrieval service over HTTP. Handlers
// translate between the JSON wire contract and domain types; all policy
// (validation, ranking, degradation) lives in the use case layer.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/physai/textbook-rag/internal/core/domain"
	"github.com/physai/textbook-rag/internal/core/ports"
	"github.com/physai/textbook-rag/internal/observability/metrics"
)

const (
	serviceName    = "api"
	serviceVersion = "1.0.0"
)

type Router struct {
	queryService ports.QueryService
	reindexQueue ports.ReindexQueue
	metrics      *metrics.HTTPServerMetrics
	logger       *slog.Logger

	rateLimitRPS   float64
	rateLimitBurst int
	maxConcurrent  int
}

type RouterOption func(*Router)

func WithTrafficControl(rps float64, burst, maxConcurrent int) RouterOption {
	return func(rt *Router) {
		rt.rateLimitRPS = rps
		rt.rateLimitBurst = burst
		rt.maxConcurrent = maxConcurrent
	}
}

func WithReindexQueue(queue ports.ReindexQueue) RouterOption {
	return func(rt *Router) {
		rt.reindexQueue = queue
	}
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		rt.logger = logger
	}
}

func NewRouter(queryService ports.QueryService, m *metrics.HTTPServerMetrics, opts ...RouterOption) *Router {
	rt := &Router{
		queryService: queryService,
		metrics:      m,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.root)
	mux.HandleFunc("/v1/health", rt.health)
	mux.HandleFunc("/v1/sections", rt.listSections)
	mux.HandleFunc("/v1/sections/", rt.sectionSubroutes)
	mux.HandleFunc("/v1/query", rt.query)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.maxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.maxConcurrent, 50*time.Millisecond)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	logger := rt.logger
	if logger == nil {
		logger = slog.Default()
	}
	return traceMiddleware(logger, handler)
}

func (rt *Router) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Physical AI Textbook RAG API",
		"version": serviceVersion,
		"endpoints": map[string]string{
			"health":   "/v1/health",
			"query":    "/v1/query",
			"sections": "/v1/sections",
		},
	})
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	status := rt.queryService.Health(r.Context())
	overall := "healthy"
	if !status.Healthy() {
		overall = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Services: map[string]string{
			"vector_index": status.VectorIndex,
			"catalog":      status.Catalog,
			"encoder":      status.Encoder,
		},
	})
}

func (rt *Router) listSections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	sections, err := rt.queryService.ListSections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sectionsResponse{Sections: sections, Total: len(sections)})
}

// sectionSubroutes serves POST /v1/sections/{section_id}/reindex.
func (rt *Router) sectionSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sections/")
	sectionID, action, found := strings.Cut(rest, "/")
	if !found || action != "reindex" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.reindexQueue == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "reindexing is not configured"})
		return
	}
	if strings.TrimSpace(sectionID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "section id is required"})
		return
	}

	if err := rt.reindexQueue.PublishSectionReindex(r.Context(), sectionID); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "failed to enqueue reindex job"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"section_id": sectionID,
		"status":     "queued",
	})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	answer, err := rt.queryService.AnswerQuery(r.Context(), domain.QueryInput{
		QueryText:        req.Query,
		SelectedText:     req.SelectedText,
		ContextSectionID: req.ContextSection,
		TopK:             req.TopK,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	rt.recordQueryMetrics(answer, time.Since(start))
	writeJSON(w, http.StatusOK, newQueryResponse(answer))
}

func (rt *Router) recordQueryMetrics(answer *domain.Answer, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordQuery(serviceName, len(answer.RetrievedChunks), answer.Confidence, duration)
	if answer.Degradation.IndexUnavailable {
		rt.metrics.RecordDegradation(serviceName, "vector_index")
	}
	if answer.Degradation.CatalogUnavailable {
		rt.metrics.RecordDegradation(serviceName, "catalog")
	}
	if answer.Degradation.GenerationFailed {
		rt.metrics.RecordDegradation(serviceName, "generator")
	}
	rt.metrics.RecordConsistencyFaults(serviceName, answer.Degradation.DroppedHits)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
