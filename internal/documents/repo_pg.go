package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `
id, client_id, file_name, mime_type, size_bytes, storage_provider, storage_key,
extracted_text_key, extracted_at, page_count, created_at`

// Create inserts a document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id, client_id, file_name, mime_type, size_bytes, storage_provider, storage_key,
    extracted_text_key, extracted_at, page_count, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.ClientID,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		doc.StorageProvider,
		doc.StorageKey,
		doc.ExtractedTextKey,
		doc.ExtractedAt,
		doc.PageCount,
		doc.CreatedAt,
	)
	return err
}

// GetByID returns a document by ID for a client.
func (r *PGRepo) GetByID(ctx context.Context, clientID, documentID string) (Document, error) {
	const query = `
SELECT` + documentColumns + `
FROM documents
WHERE id = $1 AND client_id = $2 AND deleted_at IS NULL
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, documentID, clientID))
}

// GetCurrentByClient returns the most recently uploaded document for a client.
func (r *PGRepo) GetCurrentByClient(ctx context.Context, clientID string) (Document, error) {
	const query = `
SELECT` + documentColumns + `
FROM documents
WHERE client_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, clientID))
}

// ListByClient lists documents ordered newest-first.
func (r *PGRepo) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT` + documentColumns + `
FROM documents
WHERE client_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteByClient soft-deletes all documents for a client and returns them so
// the caller can remove the stored objects.
func (r *PGRepo) DeleteByClient(ctx context.Context, clientID string) ([]Document, error) {
	docs, err := r.ListByClient(ctx, clientID, 100, 0)
	if err != nil {
		return nil, err
	}
	const query = `
UPDATE documents SET deleted_at = NOW()
WHERE client_id = $1 AND deleted_at IS NULL`
	if _, err := r.DB.ExecContext(ctx, query, clientID); err != nil {
		return nil, err
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Document, error) {
	var doc Document
	var extractedKey sql.NullString
	var extractedAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.ClientID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageProvider,
		&doc.StorageKey,
		&extractedKey,
		&extractedAt,
		&doc.PageCount,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if extractedKey.Valid {
		doc.ExtractedTextKey = extractedKey.String
	}
	if extractedAt.Valid {
		t := extractedAt.Time
		doc.ExtractedAt = &t
	}
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
