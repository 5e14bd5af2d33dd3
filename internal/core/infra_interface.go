package core

import (
	"context"
	"errors"

	"github.com/markdave123-py/ParseBench/internal/models"
)

// ErrDocumentNotFound is returned when an operation names a document
// that does not exist. Handlers map it to 404, never to a 5xx.
var ErrDocumentNotFound = errors.New("document not found")

// DbClient defines all persistence operations the services and the
// ingestion pipeline need. It abstracts Postgres/pgvector so higher
// layers never depend on a specific DB.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.DocumentSummary, error)
	DeleteDocument(ctx context.Context, id string) error

	// UpdateParseStatus touches only the status/error columns owned by the
	// given parser, so the two pipelines never clobber each other's fields.
	UpdateParseStatus(ctx context.Context, id, parser, status, errMsg string) error

	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	HasChunks(ctx context.Context, documentID, parser string) (bool, error)
	GetChunksMissingEmbedding(ctx context.Context, documentID, parser string) ([]models.DocumentChunk, error)
	SetChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error

	// SearchChunks returns the topK chunks of the given parser nearest to
	// queryVec by cosine distance, with similarity = 1 - distance attached.
	SearchChunks(ctx context.Context, parser string, queryVec []float32, topK int) ([]models.RetrievedChunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
