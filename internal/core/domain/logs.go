package domain

import "time"

// QueryLog is an append-only record of one submitted query.
type QueryLog struct {
	ID               string
	QueryText        string
	SelectedText     string
	ContextSectionID string
	TopK             int
	CreatedAt        time.Time
}

// ResponseLog is the append-only record of the envelope produced for a query.
type ResponseLog struct {
	ID              string
	QueryID         string
	ResponseText    string
	RetrievedChunks []RetrievedChunk
	Citations       []Citation
	Confidence      float64
	GenerationMS    int64
	CreatedAt       time.Time
}
