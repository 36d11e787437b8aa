package usecase

import (
	"math"
	"sort"

	"github.com/physai/textbook-rag/internal/core/domain"
)

// Scores closer than this are treated as equal and tie-broken by chunk id.
const scoreTolerance = 1e-9

// rankChunks orders surviving hits by similarity descending and assigns
// 1-based contiguous ranks. Ties break by ascending chunk id so identical
// corpora always produce identical responses.
func rankChunks(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	ranked := make([]domain.RetrievedChunk, len(chunks))
	copy(ranked, chunks)

	sort.SliceStable(ranked, func(i, j int) bool {
		if math.Abs(ranked[i].SimilarityScore-ranked[j].SimilarityScore) > scoreTolerance {
			return ranked[i].SimilarityScore > ranked[j].SimilarityScore
		}
		return ranked[i].ChunkID < ranked[j].ChunkID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// computeConfidence derives the envelope's confidence from the top-1 score,
// halved when hits survived a catalog outage unresolved. An index fault
// discards the whole result set, so it lands on the empty-result 0.0 floor
// and never scales a score.
func computeConfidence(ranked []domain.RetrievedChunk, deg domain.Degradation) float64 {
	if len(ranked) == 0 {
		return 0.0
	}
	confidence := ranked[0].SimilarityScore
	if deg.CatalogUnavailable {
		confidence *= 0.5
	}
	return clamp01(confidence)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0.0 || math.IsNaN(v):
		return 0.0
	case v > 1.0:
		return 1.0
	default:
		return v
	}
}
