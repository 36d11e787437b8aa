package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/physai/textbook-rag/internal/core/domain"
)

const excerptMaxChars = 280

// buildCitations collapses ranked chunks into one citation per distinct
// section, in first-occurrence order. Because input is ranked, the first chunk
// seen for a section is its highest-scoring one and supplies the excerpt.
// Sections whose titles could not be resolved produce incomplete citations
// rather than none.
func buildCitations(ranked []domain.RetrievedChunk, refs map[string]domain.SectionRef) []domain.Citation {
	citations := make([]domain.Citation, 0, len(ranked))
	seen := make(map[string]bool, len(ranked))

	for _, chunk := range ranked {
		if seen[chunk.SectionID] {
			continue
		}
		seen[chunk.SectionID] = true

		citation := domain.Citation{
			SectionID: chunk.SectionID,
			ModuleID:  chunk.ModuleID,
			URL:       sectionURL(chunk.ModuleID, chunk.SectionID),
			Excerpt:   truncateAtWordBoundary(chunk.Text, excerptMaxChars),
		}
		if ref, ok := refs[chunk.SectionID]; ok {
			citation.SectionTitle = ref.SectionTitle
			citation.ModuleTitle = ref.ModuleTitle
		} else {
			citation.Incomplete = true
		}
		citations = append(citations, citation)
	}
	return citations
}

// sectionURL derives the deep link deterministically from the two ids.
func sectionURL(moduleID, sectionID string) string {
	return "/docs/" + moduleID + "/" + sectionID
}

// truncateAtWordBoundary bounds s to max runes, trailing ellipsis included,
// cutting at the last word boundary inside the budget. A single token longer
// than the budget is hard-cut; an empty excerpt would be worse.
func truncateAtWordBoundary(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	const ellipsis = "..."
	runes := []rune(s)[:max-len(ellipsis)]
	cut := -1
	for i := len(runes) - 1; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	if cut == -1 {
		return string(runes) + ellipsis
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + ellipsis
}
