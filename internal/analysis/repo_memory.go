package analysis

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	jobs map[string]Job // jobId -> job
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{jobs: make(map[string]Job)}
}

// Create stores a job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

// GetByID returns a job by ID for a client.
func (r *MemoryRepo) GetByID(ctx context.Context, clientID, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok || job.ClientID != clientID {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// ListByClient returns jobs for a client ordered newest-first.
func (r *MemoryRepo) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	var jobs []Job
	for _, job := range r.jobs {
		if job.ClientID == clientID {
			jobs = append(jobs, job)
		}
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if offset >= len(jobs) {
		return []Job{}, nil
	}
	end := len(jobs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return jobs[offset:end], nil
}

// UpdateStatus moves a job to a new status.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, jobID, status string, startedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	if startedAt != nil {
		job.StartedAt = startedAt
	}
	r.jobs[jobID] = job
	return nil
}

// UpdateResult marks a job completed with its final aggregate.
func (r *MemoryRepo) UpdateResult(ctx context.Context, jobID string, result *FinancialAnalysisContent, completedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = StatusCompleted
	job.Result = result
	job.CompletedAt = completedAt
	r.jobs[jobID] = job
	return nil
}

// UpdateFailure marks a job failed.
func (r *MemoryRepo) UpdateFailure(ctx context.Context, jobID, errorCode, errorMessage string, completedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = StatusFailed
	job.ErrorCode = errorCode
	job.ErrorMessage = errorMessage
	job.CompletedAt = completedAt
	r.jobs[jobID] = job
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
