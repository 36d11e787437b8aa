// Package qdrant talks to a Qdrant instance over its REST API and adapts it
// to the ports.VectorIndex interface. The collection is created lazily on
// first upsert with cosine distance and the configured dimension.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/physai/textbook-rag/internal/core/domain"
	"github.com/physai/textbook-rag/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	collection string
	dimension  int
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger

	ensureMu          sync.Mutex
	ensuredCollection bool
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL, collection string, dimension int, executor *resilience.Executor, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("qdrant: base URL is required")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("qdrant: dimension must be positive, got %d", dimension)
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search returns up to topK hits above scoreThreshold, ordered by score
// descending as Qdrant returns them. Hits whose payload fails validation are
// skipped rather than failing the whole search.
func (c *Client) Search(ctx context.Context, queryVector []float32, topK int, scoreThreshold float64) ([]domain.SearchHit, error) {
	if len(queryVector) != c.dimension {
		return nil, fmt.Errorf("qdrant: query vector has %d dims, collection expects %d", len(queryVector), c.dimension)
	}
	if topK < 1 || topK > domain.MaxTopK {
		return nil, fmt.Errorf("qdrant: top_k %d out of range [1,%d]", topK, domain.MaxTopK)
	}

	reqBody := map[string]any{
		"vector":          queryVector,
		"limit":           topK,
		"with_payload":    true,
		"score_threshold": scoreThreshold,
	}

	var searchResp struct {
		Result []struct {
			ID      string          `json:"id"`
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}

	err := c.executor.Execute(ctx, "qdrant.search", func(ctx context.Context) error {
		searchResp.Result = nil
		path := fmt.Sprintf("/collections/%s/points/search", c.collection)
		return c.doJSON(ctx, http.MethodPost, path, reqBody, &searchResp)
	}, classifyQdrantError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "qdrant search", err)
	}

	hits := make([]domain.SearchHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		var payload pointPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			c.logger.Warn("qdrant_payload_decode_failed", "point_id", r.ID, "error", err)
			continue
		}
		if err := payload.validate(); err != nil {
			c.logger.Warn("qdrant_payload_invalid", "point_id", r.ID, "error", err)
			continue
		}
		hits = append(hits, domain.SearchHit{
			ID:      r.ID,
			Score:   r.Score,
			Payload: payload.toDomain(),
		})
	}
	return hits, nil
}

// Upsert writes all entries in one batch with wait=true, so a nil return
// means the points are persisted and searchable. Point IDs are the chunk IDs,
// which makes reindexing a section idempotent.
func (c *Client) Upsert(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i, entry := range entries {
		if strings.TrimSpace(entry.ID) == "" {
			return fmt.Errorf("qdrant: entry %d has empty id", i)
		}
		if len(entry.Vector) != c.dimension {
			return fmt.Errorf("qdrant: entry %q has %d dims, collection expects %d", entry.ID, len(entry.Vector), c.dimension)
		}
		if err := encodePayload(entry.Payload).validate(); err != nil {
			return fmt.Errorf("qdrant: entry %q: %w", entry.ID, err)
		}
	}

	if err := c.ensureCollection(ctx); err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant ensure collection", err)
	}

	type point struct {
		ID      string       `json:"id"`
		Vector  []float32    `json:"vector"`
		Payload pointPayload `json:"payload"`
	}

	points := make([]point, 0, len(entries))
	for _, entry := range entries {
		points = append(points, point{
			ID:      entry.ID,
			Vector:  entry.Vector,
			Payload: encodePayload(entry.Payload),
		})
	}

	reqBody := map[string]any{"points": points}
	err := c.executor.Execute(ctx, "qdrant.upsert", func(ctx context.Context) error {
		path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
		return c.doJSON(ctx, http.MethodPut, path, reqBody, nil)
	}, classifyQdrantError)
	if err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant upsert", err)
	}
	return nil
}

// Ping reports whether the collection is reachable.
func (c *Client) Ping(ctx context.Context) error {
	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.doJSON(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		var statusErr *HTTPStatusError
		// A missing collection still proves the server is up.
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil
		}
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant ping", err)
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensuredCollection {
		return nil
	}

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     c.dimension,
			"distance": "Cosine",
		},
	}

	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.doJSON(ctx, http.MethodPut, path, reqBody, nil)
	if err != nil {
		var statusErr *HTTPStatusError
		// 409 means the collection already exists.
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
			c.ensuredCollection = true
			return nil
		}
		return err
	}
	c.ensuredCollection = true
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody any, out any) error {
	var reader io.Reader
	if reqBody != nil {
		body, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  method + " " + path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}
