package analysis

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
	job := Job{
		ID:         "job-1",
		DocumentID: "doc-1",
		ClientID:   "client-1",
		Provider:   "gemini",
		Model:      "gemini-2.5-pro",
		Status:     StatusQueued,
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO financial_analyses").
		WithArgs(
			job.ID,
			job.DocumentID,
			job.ClientID,
			job.Provider,
			job.Model,
			job.Status,
			nil, // result
			nil, // error_code
			nil, // error_message
			job.CreatedAt,
			nil, // started_at
			nil, // completed_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	completedAt := time.Now().UTC()
	content := &FinancialAnalysisContent{
		FinancialHealthScore: HealthScore{Score: 72, Rating: "High Growth, High Burn", Summary: "s"},
		OverallSummary:       "o",
	}

	mock.ExpectExec("UPDATE financial_analyses").
		WithArgs("job-1", StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateResult(context.Background(), "job-1", content, &completedAt); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT").
		WithArgs("job-1", "client-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "document_id", "client_id", "provider", "model", "status",
			"result", "error_code", "error_message", "created_at", "started_at", "completed_at",
		}))

	_, err = repo.GetByID(context.Background(), "client-1", "job-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
