package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/physai/textbook-rag/internal/core/domain"
	"github.com/physai/textbook-rag/internal/core/ports"
)

// FallbackResponseText is returned when the generation collaborator fails.
// The envelope around it stays fully populated.
const FallbackResponseText = "I could not generate a written answer right now, " +
	"but the cited sections below cover your question."

const defaultLookupTimeout = 2 * time.Second

type QueryUseCase struct {
	encoder   ports.Encoder
	index     ports.VectorIndex
	catalog   ports.Catalog
	generator ports.AnswerGenerator
	logger    *slog.Logger

	lookupTimeout time.Duration
}

func NewQueryUseCase(
	encoder ports.Encoder,
	index ports.VectorIndex,
	catalog ports.Catalog,
	generator ports.AnswerGenerator,
	logger *slog.Logger,
) *QueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryUseCase{
		encoder:       encoder,
		index:         index,
		catalog:       catalog,
		generator:     generator,
		logger:        logger,
		lookupTimeout: defaultLookupTimeout,
	}
}

// AnswerQuery runs the full retrieval pipeline: validate, encode, search,
// resolve, rank, score, cite, generate. It fails only for invalid input or a
// dead encoder; every other dependency failure degrades the envelope instead.
func (uc *QueryUseCase) AnswerQuery(ctx context.Context, input domain.QueryInput) (*domain.Answer, error) {
	start := time.Now()

	if err := validateInput(&input); err != nil {
		return nil, err
	}

	queryVector, err := uc.encoder.EncodeSingle(ctx, composeEncoderInput(input))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	var deg domain.Degradation
	var hits []domain.SearchHit
	if isZeroVector(queryVector) {
		// A query with no hashable features (pure punctuation) matches
		// nothing, and cosine search rejects the zero vector outright.
		// Answer from nothing without blaming the index.
		uc.logger.Info("query_has_no_features", "top_k", input.TopK)
	} else {
		hits, err = uc.index.Search(ctx, queryVector, input.TopK, 0.0)
		if err != nil {
			// Unreachable index is not a request failure: answer from nothing,
			// with confidence at the degraded floor.
			uc.logger.Warn("vector_search_failed", "error", err)
			deg.IndexUnavailable = true
			hits = nil
		}
	}

	chunks, refs := uc.resolveHits(ctx, hits, &deg)
	ranked := rankChunks(chunks)
	confidence := computeConfidence(ranked, deg)
	citations := buildCitations(ranked, refs)

	responseText, generationMS := uc.generateResponse(ctx, input, ranked, &deg)

	answer := &domain.Answer{
		ResponseText:    responseText,
		RetrievedChunks: ranked,
		Citations:       citations,
		Confidence:      confidence,
		LatencyMS:       time.Since(start).Milliseconds(),
		Degradation:     deg,
	}

	uc.logInteraction(ctx, input, answer, generationMS)
	return answer, nil
}

// resolveHits maps raw index hits onto catalog-backed chunks. Each distinct
// section resolves independently with its own timeout; a dangling reference
// drops only the hits of that section, a catalog outage keeps hits with raw
// payload text and marks the response degraded.
func (uc *QueryUseCase) resolveHits(
	ctx context.Context,
	hits []domain.SearchHit,
	deg *domain.Degradation,
) ([]domain.RetrievedChunk, map[string]domain.SectionRef) {
	refs := make(map[string]domain.SectionRef, len(hits))
	dangling := make(map[string]bool)
	out := make([]domain.RetrievedChunk, 0, len(hits))

	for _, hit := range hits {
		sectionID := hit.Payload.SectionID
		if dangling[sectionID] {
			deg.DroppedHits++
			continue
		}
		if _, ok := refs[sectionID]; !ok {
			lookupCtx, cancel := context.WithTimeout(ctx, uc.lookupTimeout)
			ref, err := uc.catalog.GetSectionRef(lookupCtx, sectionID)
			cancel()

			switch {
			case err == nil:
				refs[sectionID] = *ref
			case domain.IsKind(err, domain.ErrCatalogInconsistency):
				uc.logger.Warn("dangling_section_reference",
					"chunk_id", hit.ID,
					"section_id", sectionID,
				)
				dangling[sectionID] = true
				deg.DroppedHits++
				continue
			default:
				uc.logger.Warn("catalog_lookup_failed",
					"section_id", sectionID,
					"error", err,
				)
				deg.CatalogUnavailable = true
			}
		}

		out = append(out, domain.RetrievedChunk{
			ChunkID:         hit.ID,
			SectionID:       sectionID,
			ModuleID:        hit.Payload.ModuleID,
			Text:            hit.Payload.Text,
			SimilarityScore: hit.Score,
		})
	}
	return out, refs
}

func (uc *QueryUseCase) generateResponse(
	ctx context.Context,
	input domain.QueryInput,
	passages []domain.RetrievedChunk,
	deg *domain.Degradation,
) (string, int64) {
	// Generation can be switched off entirely; the envelope stands alone.
	if uc.generator == nil {
		return FallbackResponseText, 0
	}

	genStart := time.Now()
	text, err := uc.generator.Generate(ctx, input.QueryText, input.SelectedText, passages)
	generationMS := time.Since(genStart).Milliseconds()
	if err != nil {
		uc.logger.Warn("answer_generation_failed", "error", err)
		deg.GenerationFailed = true
		return FallbackResponseText, generationMS
	}
	return text, generationMS
}

// logInteraction appends the query/response pair to the catalog. Logging is
// best effort: a write failure never fails the already-answered request.
func (uc *QueryUseCase) logInteraction(
	ctx context.Context,
	input domain.QueryInput,
	answer *domain.Answer,
	generationMS int64,
) {
	now := time.Now().UTC()
	queryLog := &domain.QueryLog{
		ID:               uuid.NewString(),
		QueryText:        input.QueryText,
		SelectedText:     input.SelectedText,
		ContextSectionID: input.ContextSectionID,
		TopK:             input.TopK,
		CreatedAt:        now,
	}
	if err := uc.catalog.LogQuery(ctx, queryLog); err != nil {
		uc.logger.Warn("query_log_failed", "error", err)
		return
	}

	responseLog := &domain.ResponseLog{
		ID:              uuid.NewString(),
		QueryID:         queryLog.ID,
		ResponseText:    answer.ResponseText,
		RetrievedChunks: answer.RetrievedChunks,
		Citations:       answer.Citations,
		Confidence:      answer.Confidence,
		GenerationMS:    generationMS,
		CreatedAt:       now,
	}
	if err := uc.catalog.LogResponse(ctx, responseLog); err != nil {
		uc.logger.Warn("response_log_failed", "error", err)
	}
}

// validateInput rejects out-of-range input before any encoding or network
// calls happen, and fills in the top-k default.
func validateInput(input *domain.QueryInput) error {
	queryLen := utf8.RuneCountInString(input.QueryText)
	if queryLen < domain.QueryMinLength || queryLen > domain.QueryMaxLength {
		return fmt.Errorf("%w: query_text length %d outside [%d,%d]",
			domain.ErrInvalidQuery, queryLen, domain.QueryMinLength, domain.QueryMaxLength)
	}
	if selectedLen := utf8.RuneCountInString(input.SelectedText); selectedLen > domain.SelectedMaxLength {
		return fmt.Errorf("%w: selected_text length %d exceeds %d",
			domain.ErrInvalidQuery, selectedLen, domain.SelectedMaxLength)
	}
	if input.TopK == 0 {
		input.TopK = domain.DefaultTopK
	}
	if input.TopK < 1 || input.TopK > domain.MaxTopK {
		return fmt.Errorf("%w: top_k %d outside [1,%d]",
			domain.ErrInvalidQuery, input.TopK, domain.MaxTopK)
	}
	return nil
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// composeEncoderInput puts highlighted text ahead of the question so the
// embedding reflects the reader's context.
func composeEncoderInput(input domain.QueryInput) string {
	if input.SelectedText == "" {
		return input.QueryText
	}
	return input.SelectedText + "\n\n" + input.QueryText
}
