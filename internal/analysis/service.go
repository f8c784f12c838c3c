package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"prospectus-backend/internal/documents"
	"prospectus-backend/internal/llm"
	"prospectus-backend/internal/shared/metrics"
	"prospectus-backend/internal/shared/telemetry"
)

// An orchestrator run is bounded as a whole on top of the per-specialist
// timeouts, so an abandoned job cannot pin a goroutine forever.
const analysisRunTimeout = 10 * time.Minute

// DocumentText loads the extracted text for a client's document. An empty
// documentID resolves to the current document.
type DocumentText interface {
	Text(ctx context.Context, clientID, documentID string) (documents.Document, string, error)
}

// Service contains business logic for analysis operations.
type Service struct {
	Repo         Repo
	Docs         DocumentText
	Gateway      llm.Gateway
	Orchestrator *Orchestrator
	Provider     string
	Model        string
}

// AnalyzeQuery answers one free-form question about a document.
func (s *Service) AnalyzeQuery(ctx context.Context, clientID, documentID, query string) (QueryAnswer, error) {
	if strings.TrimSpace(query) == "" {
		return QueryAnswer{}, ErrInvalidInput
	}
	_, text, err := s.Docs.Text(ctx, clientID, documentID)
	if err != nil {
		return QueryAnswer{}, err
	}

	raw, err := s.Gateway.Generate(ctx, queryPrompt(text, query), llm.Options{
		SystemInstruction: querySystemInstruction,
		ResponseFormat:    llm.FormatJSON,
		Temperature:       0.1,
	})
	if err != nil {
		return QueryAnswer{}, err
	}

	answer, ok := llm.ParseStructured[QueryAnswer](raw)
	if !ok {
		return QueryAnswer{}, ErrModelOutput
	}
	return answer, nil
}

// ExtractData locates every occurrence of a target data point in a document.
// A document with no matches yields an empty list, not an error.
func (s *Service) ExtractData(ctx context.Context, clientID, documentID, dataType string) ([]ExtractedRecord, error) {
	if strings.TrimSpace(dataType) == "" {
		return nil, ErrInvalidInput
	}
	_, text, err := s.Docs.Text(ctx, clientID, documentID)
	if err != nil {
		return nil, err
	}

	raw, err := s.Gateway.Generate(ctx, extractPrompt(text, dataType), llm.Options{
		SystemInstruction: extractSystemInstruction,
		ResponseFormat:    llm.FormatJSON,
		Temperature:       0.0,
	})
	if err != nil {
		return nil, err
	}

	records, ok := llm.ParseStructured[[]ExtractedRecord](raw)
	if !ok {
		return nil, ErrModelOutput
	}
	if records == nil {
		records = []ExtractedRecord{}
	}
	return records, nil
}

// Start enqueues a financial analysis for a document and kicks off
// asynchronous completion.
func (s *Service) Start(ctx context.Context, clientID, documentID string) (Job, error) {
	if clientID == "" || documentID == "" {
		return Job{}, ErrInvalidInput
	}

	doc, text, err := s.Docs.Text(ctx, clientID, documentID)
	if err != nil {
		return Job{}, err
	}

	job := Job{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		ClientID:   clientID,
		Provider:   s.Provider,
		Model:      s.Model,
		Status:     StatusQueued,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}

	go s.completeAsync(backgroundWithRequestID(ctx), job, text)

	return job, nil
}

// Get returns a job by ID for a client.
func (s *Service) Get(ctx context.Context, clientID, jobID string) (Job, error) {
	if clientID == "" || jobID == "" {
		return Job{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, clientID, jobID)
}

// List returns jobs for a client ordered newest-first.
func (s *Service) List(ctx context.Context, clientID string, limit, offset int) ([]Job, error) {
	if clientID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByClient(ctx, clientID, limit, offset)
}

func (s *Service) completeAsync(ctx context.Context, job Job, documentText string) {
	defer func() {
		if r := recover(); r != nil {
			s.failJob(ctx, job, fmt.Errorf("panic: %v", r), nil)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, analysisRunTimeout)
	defer cancel()

	startedAt := time.Now().UTC()
	if err := s.Repo.UpdateStatus(ctx, job.ID, StatusProcessing, &startedAt); err != nil {
		s.failJob(ctx, job, fmt.Errorf("set processing failed: %w", err), &startedAt)
		return
	}
	job.Status = StatusProcessing
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"client_id":         job.ClientID,
		"document_id":       job.DocumentID,
		"analysis_id":       job.ID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})

	content, err := s.Orchestrator.Run(ctx, documentText)
	if err != nil {
		s.failJob(ctx, job, err, &startedAt)
		return
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.UpdateResult(ctx, job.ID, &content, &completedAt); err != nil {
		s.failJob(ctx, job, fmt.Errorf("set analysis result failed: %w", err), &startedAt)
		return
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"client_id":         job.ClientID,
		"document_id":       job.DocumentID,
		"analysis_id":       job.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
}

func (s *Service) failJob(ctx context.Context, job Job, err error, startedAt *time.Time) {
	code := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.UpdateFailure(context.Background(), job.ID, code, msg, &completedAt); updateErr != nil {
		telemetry.Error("analysis.fail_update_failed", map[string]any{
			"analysis_id": job.ID,
			"error":       updateErr.Error(),
			"cause":       msg,
		})
	}
	metrics.IncAnalysisFailed()
	if startedAt != nil {
		metrics.ObserveAnalysisDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"client_id":         job.ClientID,
		"document_id":       job.DocumentID,
		"analysis_id":       job.ID,
		"status":            StatusFailed,
		"status_transition": job.Status + "->" + StatusFailed,
		"error_code":        code,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	var gatewayErr *llm.GatewayError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout
	case errors.Is(err, ErrSynthesis), errors.Is(err, ErrModelOutput):
		return ErrorCodeModelOutput
	case errors.As(err, &gatewayErr):
		return ErrorCodeGateway
	case strings.Contains(err.Error(), "set processing") || strings.Contains(err.Error(), "analysis result"):
		return ErrorCodeStorage
	default:
		return ErrorCodeInternal
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}
