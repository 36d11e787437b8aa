package qdrant

import (
	"fmt"
	"strings"

	"github.com/physai/textbook-rag/internal/core/domain"
)

// pointPayload is the wire shape stored alongside every vector. It mirrors
// domain.ChunkPayload; keeping a separate struct pins the JSON contract to
// this package even if the domain type grows fields.
type pointPayload struct {
	SectionID  string `json:"section_id"`
	ModuleID   string `json:"module_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

func encodePayload(p domain.ChunkPayload) pointPayload {
	return pointPayload{
		SectionID:  p.SectionID,
		ModuleID:   p.ModuleID,
		ChunkIndex: p.ChunkIndex,
		Text:       p.Text,
	}
}

func (p pointPayload) toDomain() domain.ChunkPayload {
	return domain.ChunkPayload{
		SectionID:  p.SectionID,
		ModuleID:   p.ModuleID,
		ChunkIndex: p.ChunkIndex,
		Text:       p.Text,
	}
}

func (p pointPayload) validate() error {
	if strings.TrimSpace(p.SectionID) == "" {
		return fmt.Errorf("payload missing section_id")
	}
	if strings.TrimSpace(p.Text) == "" {
		return fmt.Errorf("payload missing text")
	}
	if p.ChunkIndex < 0 {
		return fmt.Errorf("payload chunk_index is negative: %d", p.ChunkIndex)
	}
	return nil
}
