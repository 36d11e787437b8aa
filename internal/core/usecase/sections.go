package usecase

import (
	"context"
	"fmt"

	"github.com/physai/textbook-rag/internal/core/domain"
)

// ListSections serves the sections listing straight from the catalog. No
// vector search is involved, so a dead index does not affect this path.
func (uc *QueryUseCase) ListSections(ctx context.Context) ([]domain.SectionMetadata, error) {
	sections, err := uc.catalog.ListSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	if sections == nil {
		sections = []domain.SectionMetadata{}
	}
	return sections, nil
}
