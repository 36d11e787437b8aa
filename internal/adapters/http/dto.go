package httpadapter

import (
	"time"

	"github.com/physai/textbook-rag/internal/core/domain"
)

type queryRequest struct {
	Query          string `json:"query"`
	SelectedText   string `json:"selected_text,omitempty"`
	ContextSection string `json:"context_section,omitempty"`
	TopK           int    `json:"top_k,omitempty"`
}

type queryResponse struct {
	Response        string                  `json:"response"`
	Citations       []domain.Citation       `json:"citations"`
	RetrievedChunks []domain.RetrievedChunk `json:"retrieved_chunks"`
	Confidence      float64                 `json:"confidence"`
	ResponseTimeMS  int64                   `json:"response_time_ms"`
}

func newQueryResponse(answer *domain.Answer) queryResponse {
	return queryResponse{
		Response:        answer.ResponseText,
		Citations:       answer.Citations,
		RetrievedChunks: answer.RetrievedChunks,
		Confidence:      answer.Confidence,
		ResponseTimeMS:  answer.LatencyMS,
	}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type sectionsResponse struct {
	Sections []domain.SectionMetadata `json:"sections"`
	Total    int                      `json:"total"`
}
