package services

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/ParseBench/internal/core"
	"github.com/markdave123-py/ParseBench/internal/core/ingestion_engine"
	"github.com/markdave123-py/ParseBench/internal/models"
)

type DocumentService struct {
	db       core.DbClient
	storage  core.ObjectClient
	pipeline *ingestion_engine.Pipeline
	bucket   string
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, pipeline *ingestion_engine.Pipeline, bucket string) *DocumentService {
	return &DocumentService{db: db, storage: storage, pipeline: pipeline, bucket: bucket}
}

// Upload stores the file bytes, creates the document record with both
// parser statuses pending, and schedules both parse pipelines.
func (s *DocumentService) Upload(ctx context.Context, filename, contentType string, data []byte) (*models.Document, error) {
	docID := uuid.NewString()
	key := s.objectKey(docID, filename)

	if _, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType); err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:            docID,
		Filename:      filename,
		StorageKey:    key,
		FileType:      strings.TrimPrefix(path.Ext(filename), "."),
		FileSize:      int64(len(data)),
		DoclingStatus: models.StatusPending,
		AzureDIStatus: models.StatusPending,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.pipeline.EnqueueDocument(doc.ID)
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.db.GetDocumentByID(ctx, id)
}

func (s *DocumentService) List(ctx context.Context) ([]models.DocumentSummary, error) {
	return s.db.ListDocuments(ctx)
}

// Delete removes the backing file and the document record; chunks go
// with the record. A failed storage delete is logged and accepted; an
// orphaned file beats a half-deleted document.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteFile(ctx, s.bucket, doc.StorageKey); err != nil {
		slog.Error("failed to delete stored file", "document_id", id, "key", doc.StorageKey, "error", err)
	}

	return s.db.DeleteDocument(ctx, id)
}

// objectKey creates a consistent storage key layout.
func (s *DocumentService) objectKey(docID, filename string) string {
	filename = strings.TrimSpace(path.Base(filename))
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("documents", docID, filename)
}
