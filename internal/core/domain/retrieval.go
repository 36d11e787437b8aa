package domain

// Query bounds enforced before any encoding or search happens.
const (
	QueryMinLength    = 10
	QueryMaxLength    = 500
	SelectedMaxLength = 1000
	DefaultTopK       = 3
	MaxTopK           = 10
)

// QueryInput is one retrieval request.
type QueryInput struct {
	QueryText        string
	SelectedText     string
	ContextSectionID string
	TopK             int
}

// ChunkPayload is the tagged structure stored alongside each vector.
// Validated at the vector index boundary on both upsert and decode.
type ChunkPayload struct {
	SectionID  string `json:"section_id"`
	ModuleID   string `json:"module_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// VectorEntry is one (id, vector, payload) triple for upsert.
type VectorEntry struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// SearchHit is one raw nearest-neighbor result.
type SearchHit struct {
	ID      string
	Score   float64
	Payload ChunkPayload
}

// RetrievedChunk is produced fresh per query and never persisted as state.
// Rank is 1-based and strictly increasing with decreasing score.
type RetrievedChunk struct {
	ChunkID         string  `json:"chunk_id"`
	SectionID       string  `json:"section_id"`
	ModuleID        string  `json:"module_id"`
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
	Rank            int     `json:"rank"`
}

// Citation is a user-facing source reference, one per distinct section.
type Citation struct {
	SectionID    string `json:"section_id"`
	SectionTitle string `json:"section_title"`
	ModuleID     string `json:"module_id"`
	ModuleTitle  string `json:"module_title"`
	URL          string `json:"url"`
	Excerpt      string `json:"excerpt,omitempty"`
	Incomplete   bool   `json:"incomplete,omitempty"`
}

// Degradation records which dependencies failed while answering, so the
// adapter can observe it without the envelope becoming an error.
type Degradation struct {
	IndexUnavailable   bool
	CatalogUnavailable bool
	DroppedHits        int
	GenerationFailed   bool
}

// Answer is the full response envelope. It is valid and usable even when
// generation failed; only its ResponseText carries the fallback in that case.
type Answer struct {
	ResponseText    string
	RetrievedChunks []RetrievedChunk
	Citations       []Citation
	Confidence      float64
	LatencyMS       int64
	Degradation     Degradation
}

// Health states reported by the liveness probe.
const (
	ServiceUp   = "up"
	ServiceDown = "down"
)

type HealthStatus struct {
	VectorIndex string `json:"vector_index"`
	Catalog     string `json:"catalog"`
	Encoder     string `json:"encoder"`
}

func (h HealthStatus) Healthy() bool {
	return h.VectorIndex == ServiceUp && h.Catalog == ServiceUp && h.Encoder == ServiceUp
}
