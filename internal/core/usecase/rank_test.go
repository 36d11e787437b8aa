package usecase

import (
	"testing"

	"github.com/physai/textbook-rag/internal/core/domain"
)

func TestRankChunksOrdersByScoreDescending(t *testing.T) {
	ranked := rankChunks([]domain.RetrievedChunk{
		{ChunkID: "c1", SimilarityScore: 0.40},
		{ChunkID: "c2", SimilarityScore: 0.90},
		{ChunkID: "c3", SimilarityScore: 0.65},
	})

	for i := range ranked {
		if ranked[i].Rank != i+1 {
			t.Fatalf("expected contiguous 1-based ranks, got %d at position %d", ranked[i].Rank, i)
		}
		if i > 0 && ranked[i].SimilarityScore > ranked[i-1].SimilarityScore {
			t.Fatalf("expected non-increasing scores, got %f after %f",
				ranked[i].SimilarityScore, ranked[i-1].SimilarityScore)
		}
	}
	if ranked[0].ChunkID != "c2" {
		t.Fatalf("expected c2 first, got %s", ranked[0].ChunkID)
	}
}

func TestRankChunksTieBreaksDeterministically(t *testing.T) {
	ranked := rankChunks([]domain.RetrievedChunk{
		{ChunkID: "zzz", SimilarityScore: 0.5},
		{ChunkID: "aaa", SimilarityScore: 0.5},
		{ChunkID: "mmm", SimilarityScore: 0.5},
	})
	if ranked[0].ChunkID != "aaa" || ranked[1].ChunkID != "mmm" || ranked[2].ChunkID != "zzz" {
		t.Fatalf("expected ascending chunk id order on tie, got %s %s %s",
			ranked[0].ChunkID, ranked[1].ChunkID, ranked[2].ChunkID)
	}
}

func TestRankChunksDoesNotMutateInput(t *testing.T) {
	input := []domain.RetrievedChunk{
		{ChunkID: "c1", SimilarityScore: 0.1},
		{ChunkID: "c2", SimilarityScore: 0.9},
	}
	rankChunks(input)
	if input[0].ChunkID != "c1" || input[0].Rank != 0 {
		t.Fatalf("expected input untouched, got %+v", input[0])
	}
}

func TestComputeConfidenceEmptyIsZero(t *testing.T) {
	if got := computeConfidence(nil, domain.Degradation{}); got != 0.0 {
		t.Fatalf("expected 0.0 for empty results, got %f", got)
	}
	if got := computeConfidence(nil, domain.Degradation{IndexUnavailable: true}); got != 0.0 {
		t.Fatalf("expected degraded floor 0.0, got %f", got)
	}
}

func TestComputeConfidenceUsesTopScore(t *testing.T) {
	ranked := []domain.RetrievedChunk{
		{ChunkID: "c1", SimilarityScore: 0.82, Rank: 1},
		{ChunkID: "c2", SimilarityScore: 0.50, Rank: 2},
	}
	if got := computeConfidence(ranked, domain.Degradation{}); got != 0.82 {
		t.Fatalf("expected top-1 score 0.82, got %f", got)
	}
}

func TestComputeConfidenceHalvesOnCatalogOutage(t *testing.T) {
	ranked := []domain.RetrievedChunk{{ChunkID: "c1", SimilarityScore: 0.8, Rank: 1}}
	if got := computeConfidence(ranked, domain.Degradation{CatalogUnavailable: true}); got != 0.4 {
		t.Fatalf("expected 0.4 under catalog outage, got %f", got)
	}
	// An index fault empties the result set before scoring; the flag alone
	// must not scale a surviving score.
	if got := computeConfidence(ranked, domain.Degradation{IndexUnavailable: true}); got != 0.8 {
		t.Fatalf("expected index flag to leave score untouched, got %f", got)
	}
}

func TestComputeConfidenceClampsToUnitInterval(t *testing.T) {
	over := []domain.RetrievedChunk{{ChunkID: "c1", SimilarityScore: 1.3, Rank: 1}}
	if got := computeConfidence(over, domain.Degradation{}); got != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %f", got)
	}
	under := []domain.RetrievedChunk{{ChunkID: "c1", SimilarityScore: -0.2, Rank: 1}}
	if got := computeConfidence(under, domain.Degradation{}); got != 0.0 {
		t.Fatalf("expected clamp to 0.0, got %f", got)
	}
}
