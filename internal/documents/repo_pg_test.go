package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	doc := Document{
		ID:               "doc-1",
		ClientID:         "client-1",
		FileName:         "s1.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        1024,
		StorageProvider:  "local",
		StorageKey:       "client-1/doc/s1.pdf",
		ExtractedTextKey: "client-1/doc/s1.pdf.extracted.txt",
		ExtractedAt:      &now,
		PageCount:        12,
		CreatedAt:        now,
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.ClientID,
			doc.FileName,
			doc.MimeType,
			doc.SizeBytes,
			doc.StorageProvider,
			doc.StorageKey,
			doc.ExtractedTextKey,
			sqlmock.AnyArg(), // extracted_at
			doc.PageCount,
			doc.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetCurrentNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT").
		WithArgs("client-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "client_id", "file_name", "mime_type", "size_bytes",
			"storage_provider", "storage_key", "extracted_text_key",
			"extracted_at", "page_count", "created_at",
		}))

	_, err = repo.GetCurrentByClient(context.Background(), "client-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
