package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/ParseBench/internal/config"
	"github.com/markdave123-py/ParseBench/internal/core"
	"github.com/markdave123-py/ParseBench/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, filename, storage_key, file_type, file_size,
			 docling_status, azure_di_status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), COALESCE($9, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Filename, doc.StorageKey, doc.FileType, doc.FileSize,
		doc.DoclingStatus, doc.AzureDIStatus, nullTime(doc.CreatedAt), nullTime(doc.UpdatedAt))
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, filename, storage_key, file_type, file_size,
		       docling_status, COALESCE(docling_error, ''),
		       azure_di_status, COALESCE(azure_di_error, ''),
		       created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.Filename, &d.StorageKey, &d.FileType, &d.FileSize,
		&d.DoclingStatus, &d.DoclingError,
		&d.AzureDIStatus, &d.AzureDIError,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, core.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	const q = `
		SELECT d.id, d.filename, d.storage_key, d.file_type, d.file_size,
		       d.docling_status, COALESCE(d.docling_error, ''),
		       d.azure_di_status, COALESCE(d.azure_di_error, ''),
		       d.created_at, d.updated_at,
		       (SELECT count(*) FROM document_chunks c WHERE c.document_id = d.id)
		FROM documents d
		ORDER BY d.created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentSummary
	for rows.Next() {
		var s models.DocumentSummary
		if err := rows.Scan(
			&s.ID, &s.Filename, &s.StorageKey, &s.FileType, &s.FileSize,
			&s.DoclingStatus, &s.DoclingError,
			&s.AzureDIStatus, &s.AzureDIError,
			&s.CreatedAt, &s.UpdatedAt, &s.ChunkCount,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	// Chunks go with the document via ON DELETE CASCADE.
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrDocumentNotFound
	}
	return nil
}

// UpdateParseStatus updates only the two columns owned by the given parser.
// Concurrent updates for the sibling parser never touch the same fields.
func (c *DatabaseClient) UpdateParseStatus(ctx context.Context, id, parser, status, errMsg string) error {
	var q string
	switch parser {
	case models.ParserDocling:
		q = `UPDATE documents SET docling_status = $2, docling_error = NULLIF($3, ''), updated_at = now() WHERE id = $1`
	case models.ParserAzureDI:
		q = `UPDATE documents SET azure_di_status = $2, azure_di_error = NULLIF($3, ''), updated_at = now() WHERE id = $1`
	default:
		return fmt.Errorf("unknown parser: %s", parser)
	}
	res, err := c.db.ExecContext(ctx, q, id, status, errMsg)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrDocumentNotFound
	}
	return nil
}

// InsertDocumentChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, parser, content, embedding,
			 file_name, page_number, chunk_serial, section_title, layout_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, COALESCE($11, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]

		var emb any
		if ch.Embedding != nil {
			emb = pgvector.NewVector(ch.Embedding)
		}
		var layoutInfo any
		if len(ch.Metadata.LayoutInfo) > 0 {
			layoutInfo = []byte(ch.Metadata.LayoutInfo)
		}

		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.Metadata.Parser, ch.Content, emb,
			ch.Metadata.FileName, ch.Metadata.PageNumber, ch.Metadata.ChunkSerial,
			ch.Metadata.SectionTitle, layoutInfo, nullTime(ch.CreatedAt),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) HasChunks(ctx context.Context, documentID, parser string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM document_chunks WHERE document_id = $1 AND parser = $2)`
	var exists bool
	if err := c.db.QueryRowContext(ctx, q, documentID, parser).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (c *DatabaseClient) GetChunksMissingEmbedding(ctx context.Context, documentID, parser string) ([]models.DocumentChunk, error) {
	const q = `
		SELECT id, document_id, parser, content,
		       file_name, page_number, chunk_serial, COALESCE(section_title, ''), layout_info, created_at
		FROM document_chunks
		WHERE document_id = $1 AND parser = $2 AND embedding IS NULL
		ORDER BY chunk_serial ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID, parser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) SetChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	const q = `UPDATE document_chunks SET embedding = $2 WHERE id = $1`
	_, err := c.db.ExecContext(ctx, q, chunkID, pgvector.NewVector(embedding))
	return err
}

// SearchChunks finds the topK chunks of one parser nearest to the query
// vector by cosine distance, skipping chunks not yet embedded.
func (c *DatabaseClient) SearchChunks(ctx context.Context, parser string, queryVec []float32, topK int) ([]models.RetrievedChunk, error) {
	const q = `
		SELECT id, document_id, parser, content,
		       file_name, page_number, chunk_serial, COALESCE(section_title, ''), layout_info, created_at,
		       1 - (embedding <=> $2) AS similarity
		FROM document_chunks
		WHERE parser = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, parser, vec, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RetrievedChunk
	for rows.Next() {
		var (
			ch         models.DocumentChunk
			title      string
			layoutInfo []byte
			similarity float64
		)
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.Metadata.Parser, &ch.Content,
			&ch.Metadata.FileName, &ch.Metadata.PageNumber, &ch.Metadata.ChunkSerial,
			&title, &layoutInfo, &ch.CreatedAt, &similarity,
		); err != nil {
			return nil, err
		}
		ch.Metadata.SectionTitle = title
		ch.Metadata.LayoutInfo = json.RawMessage(layoutInfo)
		out = append(out, models.RetrievedChunk{DocumentChunk: ch, Similarity: similarity})
	}
	return out, rows.Err()
}

func scanChunk(rows *sql.Rows) (models.DocumentChunk, error) {
	var (
		ch         models.DocumentChunk
		title      string
		layoutInfo []byte
	)
	err := rows.Scan(
		&ch.ID, &ch.DocumentID, &ch.Metadata.Parser, &ch.Content,
		&ch.Metadata.FileName, &ch.Metadata.PageNumber, &ch.Metadata.ChunkSerial,
		&title, &layoutInfo, &ch.CreatedAt,
	)
	if err != nil {
		return ch, err
	}
	ch.Metadata.SectionTitle = title
	ch.Metadata.LayoutInfo = json.RawMessage(layoutInfo)
	return ch, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
