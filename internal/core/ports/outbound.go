package ports

import (
	"context"

	"github.com/physai/textbook-rag/internal/core/domain"
)

// Encoder maps text to fixed-length dense vectors. Encoding is deterministic
// for identical input and safe for concurrent use. An empty input yields an
// empty output, not an error; an uninitialized model yields ErrModelUnavailable.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	EncodeSingle(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Ready() error
}

// VectorIndex stores (id, vector, payload) triples and serves nearest-neighbor
// search. Results come back ordered by descending score, truncated to topK,
// with hits below scoreThreshold excluded. Connectivity failures surface as
// ErrIndexUnavailable so the orchestrator can degrade instead of failing.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, topK int, scoreThreshold float64) ([]domain.SearchHit, error)
	Upsert(ctx context.Context, entries []domain.VectorEntry) error
	Ping(ctx context.Context) error
}

// Catalog is the relational metadata store. Lookups for missing rows return
// ErrCatalogInconsistency; connectivity failures return ErrCatalogUnavailable.
type Catalog interface {
	GetSectionRef(ctx context.Context, sectionID string) (*domain.SectionRef, error)
	ListSections(ctx context.Context) ([]domain.SectionMetadata, error)
	ListSectionChunks(ctx context.Context, sectionID string) ([]domain.Chunk, error)
	LogQuery(ctx context.Context, entry *domain.QueryLog) error
	LogResponse(ctx context.Context, entry *domain.ResponseLog) error
	Ping(ctx context.Context) error
}

// AnswerGenerator turns ranked passages into prose. A generation failure never
// corrupts the already-computed envelope.
type AnswerGenerator interface {
	Generate(ctx context.Context, queryText, selectedText string, passages []domain.RetrievedChunk) (string, error)
}

// ReindexQueue publishes/consumes section reindex jobs.
type ReindexQueue interface {
	PublishSectionReindex(ctx context.Context, sectionID string) error
	SubscribeSectionReindex(ctx context.Context, handler func(context.Context, string) error) error
}
