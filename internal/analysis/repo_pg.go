package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Results are stored as JSONB.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `
id, document_id, client_id, provider, model, status, result,
error_code, error_message, created_at, started_at, completed_at`

// Create inserts a job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO financial_analyses (
    id, document_id, client_id, provider, model, status, result,
    error_code, error_message, created_at, started_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	result, err := encodeResult(job.Result)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		job.DocumentID,
		job.ClientID,
		job.Provider,
		job.Model,
		job.Status,
		result,
		nullString(job.ErrorCode),
		nullString(job.ErrorMessage),
		job.CreatedAt,
		job.StartedAt,
		job.CompletedAt,
	)
	return err
}

// GetByID returns a job by ID for a client.
func (r *PGRepo) GetByID(ctx context.Context, clientID, jobID string) (Job, error) {
	const query = `
SELECT` + jobColumns + `
FROM financial_analyses
WHERE id = $1 AND client_id = $2
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, jobID, clientID))
}

// ListByClient lists jobs ordered newest-first.
func (r *PGRepo) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]Job, error) {
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
SELECT` + jobColumns + `
FROM financial_analyses
WHERE client_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// UpdateStatus moves a job to a new status.
func (r *PGRepo) UpdateStatus(ctx context.Context, jobID, status string, startedAt *time.Time) error {
	const query = `
UPDATE financial_analyses
SET status = $2, started_at = COALESCE($3, started_at)
WHERE id = $1`
	return r.exec(ctx, query, jobID, status, startedAt)
}

// UpdateResult marks a job completed with its final aggregate.
func (r *PGRepo) UpdateResult(ctx context.Context, jobID string, result *FinancialAnalysisContent, completedAt *time.Time) error {
	encoded, err := encodeResult(result)
	if err != nil {
		return err
	}
	const query = `
UPDATE financial_analyses
SET status = $2, result = $3, completed_at = $4
WHERE id = $1`
	return r.exec(ctx, query, jobID, StatusCompleted, encoded, completedAt)
}

// UpdateFailure marks a job failed.
func (r *PGRepo) UpdateFailure(ctx context.Context, jobID, errorCode, errorMessage string, completedAt *time.Time) error {
	const query = `
UPDATE financial_analyses
SET status = $2, error_code = $3, error_message = $4, completed_at = $5
WHERE id = $1`
	return r.exec(ctx, query, jobID, StatusFailed, errorCode, errorMessage, completedAt)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Job, error) {
	var job Job
	var result []byte
	var errorCode, errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&job.ClientID,
		&job.Provider,
		&job.Model,
		&job.Status,
		&result,
		&errorCode,
		&errorMessage,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	if len(result) > 0 {
		var content FinancialAnalysisContent
		if err := json.Unmarshal(result, &content); err != nil {
			return Job{}, fmt.Errorf("decode analysis result: %w", err)
		}
		job.Result = &content
	}
	if errorCode.Valid {
		job.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		job.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

func encodeResult(result *FinancialAnalysisContent) (any, error) {
	if result == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode analysis result: %w", err)
	}
	return encoded, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
