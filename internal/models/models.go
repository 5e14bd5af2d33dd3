package models

import (
	"encoding/json"
	"time"
)

// Parser identifies which extraction pipeline produced a chunk or status.
// It is the partition key for chunks and for retrieval.
const (
	ParserDocling = "docling"
	ParserAzureDI = "azure_di"
)

// Per-parser processing statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ValidParser reports whether p names one of the two extraction pipelines.
func ValidParser(p string) bool {
	return p == ParserDocling || p == ParserAzureDI
}

// Document represents one uploaded file. Each parser tracks its own
// status and error; the two columns evolve independently.
type Document struct {
	ID            string    `db:"id" json:"id"`
	Filename      string    `db:"filename" json:"filename"`
	StorageKey    string    `db:"storage_key" json:"storage_key"`
	FileType      string    `db:"file_type" json:"file_type"`
	FileSize      int64     `db:"file_size" json:"file_size"`
	DoclingStatus string    `db:"docling_status" json:"docling_status"`
	DoclingError  string    `db:"docling_error" json:"docling_error,omitempty"`
	AzureDIStatus string    `db:"azure_di_status" json:"azure_di_status"`
	AzureDIError  string    `db:"azure_di_error" json:"azure_di_error,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentSummary is a Document plus its current chunk count, used by listings.
type DocumentSummary struct {
	Document
	ChunkCount int `json:"chunk_count"`
}

// ChunkMetadata is the closed set of fields attached to every chunk.
// LayoutInfo stays an uninterpreted blob for parser-specific extras.
type ChunkMetadata struct {
	Parser       string          `json:"parser"`
	FileName     string          `json:"file_name"`
	PageNumber   int             `json:"page_number"`
	ChunkSerial  int             `json:"chunk_serial"`
	SectionTitle string          `json:"section_title,omitempty"`
	LayoutInfo   json.RawMessage `json:"layout_info,omitempty"`
}

// DocumentChunk represents one retrievable unit of extracted text.
// Embedding is nil until the embedding stage fills it in.
type DocumentChunk struct {
	ID         string        `db:"id" json:"id"`
	DocumentID string        `db:"document_id" json:"document_id"`
	Content    string        `db:"content" json:"content"`
	Embedding  []float32     `db:"embedding" json:"-"` // pgvector column
	Metadata   ChunkMetadata `json:"metadata"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// RetrievedChunk is a chunk plus its similarity to a query vector,
// where similarity = 1 - cosine distance (higher is more relevant).
type RetrievedChunk struct {
	DocumentChunk
	Similarity float64 `json:"similarity"`
}
