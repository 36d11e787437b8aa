package httpadapter

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Every response carries X-Request-Id so a reported bad answer can be matched
// to its access line and the chat_queries row it produced.
const requestIDHeader = "X-Request-Id"

// traceMiddleware tags the request with an id, honoring a caller-supplied
// one, and emits a single access line once the handler returns. Query
// answering dominates latency here, so duration is logged per request rather
// than sampled.
func traceMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		trace := &responseTrace{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(trace, r)

		client := r.RemoteAddr
		if host, _, err := net.SplitHostPort(client); err == nil {
			client = host
		}

		attrs := []any{
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", trace.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", trace.bytes,
			"client", client,
		}
		switch {
		case trace.status >= http.StatusInternalServerError:
			logger.Error("request_completed", attrs...)
		case trace.status >= http.StatusBadRequest:
			logger.Warn("request_completed", attrs...)
		default:
			logger.Info("request_completed", attrs...)
		}
	})
}

// responseTrace captures what the handler wrote. The surface is plain JSON
// over HTTP/1.1; nothing hijacks, streams, or pushes.
type responseTrace struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (t *responseTrace) WriteHeader(status int) {
	t.status = status
	t.ResponseWriter.WriteHeader(status)
}

func (t *responseTrace) Write(b []byte) (int, error) {
	n, err := t.ResponseWriter.Write(b)
	t.bytes += n
	return n, err
}
