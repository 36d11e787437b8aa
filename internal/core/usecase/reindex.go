package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/physai/textbook-rag/internal/core/domain"
	"github.com/physai/textbook-rag/internal/core/ports"
)

// ReindexUseCase rebuilds a section's vectors from its catalog chunks. It is
// how a chunk row that lost its vector (a consistency fault) gets repaired.
type ReindexUseCase struct {
	encoder ports.Encoder
	index   ports.VectorIndex
	catalog ports.Catalog
	logger  *slog.Logger
}

func NewReindexUseCase(
	encoder ports.Encoder,
	index ports.VectorIndex,
	catalog ports.Catalog,
	logger *slog.Logger,
) *ReindexUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReindexUseCase{
		encoder: encoder,
		index:   index,
		catalog: catalog,
		logger:  logger,
	}
}

// ReindexSection rebuilds the section's vectors and returns the number of
// chunk vectors written.
func (uc *ReindexUseCase) ReindexSection(ctx context.Context, sectionID string) (int, error) {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return 0, fmt.Errorf("reindex: empty section id")
	}

	ref, err := uc.catalog.GetSectionRef(ctx, sectionID)
	if err != nil {
		return 0, fmt.Errorf("resolve section %s: %w", sectionID, err)
	}

	chunks, err := uc.catalog.ListSectionChunks(ctx, sectionID)
	if err != nil {
		return 0, fmt.Errorf("load chunks for section %s: %w", sectionID, err)
	}
	if len(chunks) == 0 {
		uc.logger.Info("reindex_no_chunks", "section_id", sectionID)
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := uc.encoder.Encode(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("encode section %s chunks: %w", sectionID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("encode section %s: got %d vectors for %d chunks", sectionID, len(vectors), len(chunks))
	}

	entries := make([]domain.VectorEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = domain.VectorEntry{
			ID:     chunk.ID,
			Vector: vectors[i],
			Payload: domain.ChunkPayload{
				SectionID:  chunk.SectionID,
				ModuleID:   ref.ModuleID,
				ChunkIndex: chunk.ChunkIndex,
				Text:       chunk.Text,
			},
		}
	}

	if err := uc.index.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("upsert section %s vectors: %w", sectionID, err)
	}

	uc.logger.Info("section_reindexed", "section_id", sectionID, "chunks", len(chunks))
	return len(chunks), nil
}
