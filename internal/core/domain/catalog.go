package domain

import "time"

// Module is a top-level unit of the textbook, ordered by Position.
type Module struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// Section belongs to exactly one Module and cascade-deletes with it.
type Section struct {
	ID               string   `json:"id"`
	ModuleID         string   `json:"module_id"`
	Title            string   `json:"title"`
	Position         int      `json:"position"`
	WordCount        int      `json:"word_count"`
	ReadabilityGrade *float64 `json:"readability_grade,omitempty"`
}

// SectionMetadata is the read model served by the sections listing.
type SectionMetadata struct {
	SectionID        string    `json:"section_id"`
	ModuleID         string    `json:"module_id"`
	Title            string    `json:"title"`
	WordCount        int       `json:"word_count"`
	ReadabilityGrade *float64  `json:"flesch_kincaid_grade,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Chunk is a contiguous slice of a section's text, the unit of retrieval.
// (SectionID, ChunkIndex) is unique; offsets never overlap within a section.
// Every chunk has exactly one vector in the index keyed by the same ID.
type Chunk struct {
	ID          string            `json:"id"`
	SectionID   string            `json:"section_id"`
	ChunkIndex  int               `json:"chunk_index"`
	Text        string            `json:"text"`
	WordCount   int               `json:"word_count"`
	StartOffset int               `json:"start_offset"`
	EndOffset   int               `json:"end_offset"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SectionRef carries the resolved section and module titles for one hit.
type SectionRef struct {
	SectionID    string
	SectionTitle string
	ModuleID     string
	ModuleTitle  string
}
