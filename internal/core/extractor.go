package core

import (
	"context"
	"encoding/json"

	"github.com/markdave123-py/ParseBench/internal/core/layout"
)

// LayoutProvider analyzes raw document bytes and returns a structured
// layout result (pages, paragraphs, tables with cell coordinates).
type LayoutProvider interface {
	Analyze(ctx context.Context, data []byte) (*layout.AnalyzeResult, error)
}

// ChunkDraft is one pre-normalized chunk as produced by the parsing
// service, with the same shape the chunker emits.
type ChunkDraft struct {
	Content      string          `json:"content"`
	PageNumber   int             `json:"pageNumber"`
	ChunkSerial  int             `json:"chunkSerial"`
	SectionTitle string          `json:"sectionTitle,omitempty"`
	LayoutInfo   json.RawMessage `json:"layoutMetadata,omitempty"`
}

// ParseService is the local parsing service. It does its own chunking,
// so its output is consumed without further processing.
type ParseService interface {
	Parse(ctx context.Context, documentID, storageKey string) ([]ChunkDraft, error)
}
