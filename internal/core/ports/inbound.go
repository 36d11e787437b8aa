package ports

import (
	"context"

	"github.com/physai/textbook-rag/internal/core/domain"
)

// QueryService is the inbound contract the request layer talks to.
type QueryService interface {
	AnswerQuery(ctx context.Context, input domain.QueryInput) (*domain.Answer, error)
	ListSections(ctx context.Context) ([]domain.SectionMetadata, error)
	Health(ctx context.Context) domain.HealthStatus
}

// SectionReindexer is the inbound contract for asynchronous vector backfill.
// ReindexSection reports how many chunk vectors it wrote.
type SectionReindexer interface {
	ReindexSection(ctx context.Context, sectionID string) (int, error)
}
