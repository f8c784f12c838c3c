package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"prospectus-backend/internal/documents"
	"prospectus-backend/internal/llm"
	"prospectus-backend/internal/shared/telemetry"
)

type fakeDocs struct {
	text string
	err  error
}

func (f *fakeDocs) Text(ctx context.Context, clientID, documentID string) (documents.Document, string, error) {
	if f.err != nil {
		return documents.Document{}, "", f.err
	}
	id := documentID
	if id == "" {
		id = "doc-1"
	}
	return documents.Document{ID: id, ClientID: clientID}, f.text, nil
}

const revenueText = "For the fiscal years ended January 31, 2019 and 2020, our revenue was $96.7 million and $264.7 million, respectively."

func TestExtractDataParsesRecords(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		if opts.Temperature != 0.0 {
			t.Errorf("expected extraction temperature 0.0, got %v", opts.Temperature)
		}
		if !strings.Contains(prompt, "Total Revenue") {
			t.Errorf("prompt missing data type: %.80s", prompt)
		}
		if !strings.Contains(prompt, revenueText) {
			t.Error("prompt missing document text")
		}
		return `[
  {"figure":"$96.7 million","period":"fiscal year ended January 31, 2019","numericValue":96.7,"unit":"million","citation":"` + revenueText + `"},
  {"figure":"$264.7 million","period":"fiscal year ended January 31, 2020","numericValue":264.7,"unit":"million","citation":"` + revenueText + `"}
]`, nil
	}

	svc := &Service{Docs: &fakeDocs{text: revenueText}, Gateway: gw}
	records, err := svc.ExtractData(context.Background(), "client-1", "", "Total Revenue")
	if err != nil {
		t.Fatalf("ExtractData: %v", err)
	}
	if len(records) < 2 {
		t.Fatalf("expected at least 2 records, got %d", len(records))
	}
	for i, want := range []float64{96.7, 264.7} {
		if records[i].NumericValue == nil || *records[i].NumericValue != want {
			t.Fatalf("record %d numericValue = %v, want %v", i, records[i].NumericValue, want)
		}
		if records[i].Unit == nil || *records[i].Unit != "million" {
			t.Fatalf("record %d unit = %v, want million", i, records[i].Unit)
		}
	}
}

func TestExtractDataEmptyDocumentYieldsEmptyList(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		return `[]`, nil
	}

	svc := &Service{Docs: &fakeDocs{text: ""}, Gateway: gw}
	records, err := svc.ExtractData(context.Background(), "client-1", "", "Total Revenue")
	if err != nil {
		t.Fatalf("ExtractData: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty list, got %v", records)
	}
}

func TestAnalyzeQuery(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		if opts.Temperature != 0.1 {
			t.Errorf("expected query temperature 0.1, got %v", opts.Temperature)
		}
		return "```json\n{\"answer\":\"According to the 'Risk Factors' section...\",\"confidenceScore\":0.9,\"citation\":\"quote\"}\n```", nil
	}

	svc := &Service{Docs: &fakeDocs{text: revenueText}, Gateway: gw}
	answer, err := svc.AnalyzeQuery(context.Background(), "client-1", "", "What are the risks?")
	if err != nil {
		t.Fatalf("AnalyzeQuery: %v", err)
	}
	if answer.ConfidenceScore != 0.9 {
		t.Fatalf("unexpected confidence: %v", answer.ConfidenceScore)
	}
}

func TestAnalyzeQueryModelOutputInvalid(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		return "not json at all", nil
	}

	svc := &Service{Docs: &fakeDocs{text: revenueText}, Gateway: gw}
	if _, err := svc.AnalyzeQuery(context.Background(), "client-1", "", "q"); !errors.Is(err, ErrModelOutput) {
		t.Fatalf("expected ErrModelOutput, got %v", err)
	}
}

func waitForTerminalStatus(t *testing.T, svc *Service, clientID, jobID string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Get(context.Background(), clientID, jobID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal status")
	return Job{}
}

func TestFinancialAnalysisJobCompletes(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		if strings.Contains(prompt, "DATA FROM SPECIALIST ANALYSTS") {
			return validSynthesisJSON, nil
		}
		if out, ok := specialistStubs(prompt); ok {
			return out, nil
		}
		return "", errors.New("unexpected prompt")
	}

	svc := &Service{
		Repo:         NewMemoryRepo(),
		Docs:         &fakeDocs{text: revenueText},
		Gateway:      gw,
		Orchestrator: &Orchestrator{Gateway: gw},
		Provider:     "gemini",
		Model:        "gemini-2.5-pro",
	}

	job, err := svc.Start(context.Background(), "client-1", "doc-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if job.Status != StatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}

	final := waitForTerminalStatus(t, svc, "client-1", job.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if final.Result == nil || final.Result.FinancialHealthScore.Score != 72 {
		t.Fatalf("unexpected result: %+v", final.Result)
	}
	if final.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}
}

func TestFinancialAnalysisSynthesisFailureFailsJob(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		if strings.Contains(prompt, "DATA FROM SPECIALIST ANALYSTS") {
			return "garbage", nil
		}
		if out, ok := specialistStubs(prompt); ok {
			return out, nil
		}
		return "", errors.New("unexpected prompt")
	}

	svc := &Service{
		Repo:         NewMemoryRepo(),
		Docs:         &fakeDocs{text: revenueText},
		Gateway:      gw,
		Orchestrator: &Orchestrator{Gateway: gw},
	}

	job, err := svc.Start(context.Background(), "client-1", "doc-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitForTerminalStatus(t, svc, "client-1", job.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.ErrorCode != ErrorCodeModelOutput {
		t.Fatalf("expected error code %s, got %s", ErrorCodeModelOutput, final.ErrorCode)
	}
	if final.Result != nil {
		t.Fatalf("expected no partial result, got %+v", final.Result)
	}
}

type stuckStatusRepo struct {
	*MemoryRepo
}

func (r *stuckStatusRepo) UpdateStatus(ctx context.Context, jobID, status string, startedAt *time.Time) error {
	return errors.New("connection refused")
}

func TestFailedBeforeProcessingLogsQueuedTransition(t *testing.T) {
	var buf logBuffer
	prev := telemetry.SetOutput(&buf)
	defer telemetry.SetOutput(prev)

	svc := &Service{
		Repo:         &stuckStatusRepo{MemoryRepo: NewMemoryRepo()},
		Docs:         &fakeDocs{text: revenueText},
		Gateway:      &fakeGateway{},
		Orchestrator: &Orchestrator{Gateway: &fakeGateway{}},
	}

	job, err := svc.Start(context.Background(), "client-1", "doc-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitForTerminalStatus(t, svc, "client-1", job.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.ErrorCode != ErrorCodeStorage {
		t.Fatalf("expected error code %s, got %s", ErrorCodeStorage, final.ErrorCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !containsTransition(buf.String(), "queued->failed") {
		if time.Now().After(deadline) {
			t.Fatalf("transition log not written, got: %s", buf.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if containsTransition(buf.String(), "processing->failed") {
		t.Fatalf("job never reached processing, log claims otherwise: %s", buf.String())
	}
}

// containsTransition decodes each captured log line and reports whether any
// entry carries the given status_transition value. Substring-matching the raw
// output would miss it because json.Marshal HTML-escapes '>' as \u003e.
func containsTransition(logs, transition string) bool {
	for _, line := range strings.Split(logs, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil {
			continue
		}
		if entry["status_transition"] == transition {
			return true
		}
	}
	return false
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartUnknownDocument(t *testing.T) {
	svc := &Service{
		Repo: NewMemoryRepo(),
		Docs: &fakeDocs{err: documents.ErrNotFound},
	}
	if _, err := svc.Start(context.Background(), "client-1", "missing"); !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected documents.ErrNotFound, got %v", err)
	}
}
