package analysis

import (
	"context"
	"time"
)

// Repo defines persistence operations for financial-analysis jobs.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, clientID, jobID string) (Job, error)
	ListByClient(ctx context.Context, clientID string, limit, offset int) ([]Job, error)
	UpdateStatus(ctx context.Context, jobID, status string, startedAt *time.Time) error
	UpdateResult(ctx context.Context, jobID string, result *FinancialAnalysisContent, completedAt *time.Time) error
	UpdateFailure(ctx context.Context, jobID, errorCode, errorMessage string, completedAt *time.Time) error
}
