package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"prospectus-backend/internal/llm"
)

type fakeGateway struct {
	mu       sync.Mutex
	prompts  []string
	generate func(prompt string, opts llm.Options) (string, error)
}

func (f *fakeGateway) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &llm.GatewayError{Op: "generate", Err: err}
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.generate(prompt, opts)
}

func (f *fakeGateway) GenerateStream(ctx context.Context, prompt string, opts llm.Options, emit func(string) error) error {
	return errors.New("not implemented")
}

func (f *fakeGateway) StartChat(ctx context.Context, systemInstruction string, history []llm.Turn) (llm.Chat, error) {
	return nil, errors.New("not implemented")
}

const validSynthesisJSON = `{
  "financialHealthScore": {"score": 72, "rating": "High Growth, High Burn", "summary": "Strong top line, heavy losses."},
  "waterfallAnalysis": [{"label": "Revenue", "value": 264.7}, {"label": "Net Loss", "value": -119.4}],
  "overallSummary": "Rapidly growing with significant cash burn."
}`

func specialistStubs(prompt string) (string, bool) {
	switch {
	case strings.Contains(prompt, "IPO specialist"):
		return `{"useOfProceeds":{"summary":"general corporate purposes","citation":"q"},"customerConcentration":{"summary":"","citation":""},"shareStructure":{"summary":"","citation":""}}`, true
	case strings.Contains(prompt, "cash flow analyst"):
		return `{"summary":"healthy cash position","citation":"q2"}`, true
	case strings.Contains(prompt, "growth metrics"):
		return `[{"metric":"Revenue YoY Growth","value":"174%","period":"FY2020","commentary":"strong","citation":"q3","sentiment":"positive"}]`, true
	case strings.Contains(prompt, "TASK:"):
		return `[]`, true
	}
	return "", false
}

func TestOrchestratorSpecialistFailureFallsBack(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		if strings.Contains(prompt, "DATA FROM SPECIALIST ANALYSTS") {
			return validSynthesisJSON, nil
		}
		if strings.Contains(prompt, "specializing in profitability") {
			return "", &llm.GatewayError{Op: "generate", Err: errors.New("boom")}
		}
		if out, ok := specialistStubs(prompt); ok {
			return out, nil
		}
		t.Errorf("unexpected prompt: %.80s", prompt)
		return "", errors.New("unexpected prompt")
	}

	o := &Orchestrator{Gateway: gw}
	result, err := o.Run(context.Background(), "doc text")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The failed specialist contributes its default and the run proceeds.
	if len(result.ProfitabilityRatios) != 0 {
		t.Fatalf("expected empty profitability ratios, got %v", result.ProfitabilityRatios)
	}
	if len(result.GrowthAndEfficiencyRatios) != 1 || result.GrowthAndEfficiencyRatios[0].Value != "174%" {
		t.Fatalf("unexpected growth ratios: %v", result.GrowthAndEfficiencyRatios)
	}
	if result.CashFlowAnalysis.Summary != "healthy cash position" {
		t.Fatalf("unexpected cash flow analysis: %v", result.CashFlowAnalysis)
	}
	if result.FinancialHealthScore.Score != 72 {
		t.Fatalf("unexpected score: %v", result.FinancialHealthScore.Score)
	}
	if len(result.WaterfallAnalysis) != 2 || result.WaterfallAnalysis[0].Label != "Revenue" {
		t.Fatalf("unexpected waterfall: %v", result.WaterfallAnalysis)
	}
}

func TestOrchestratorSynthesisSeesSpecialistData(t *testing.T) {
	gw := &fakeGateway{}
	var synthPrompt string
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		if strings.Contains(prompt, "DATA FROM SPECIALIST ANALYSTS") {
			synthPrompt = prompt
			if opts.Temperature != 0.2 {
				t.Errorf("expected synthesis temperature 0.2, got %v", opts.Temperature)
			}
			return validSynthesisJSON, nil
		}
		if opts.Temperature != 0.1 {
			t.Errorf("expected specialist temperature 0.1, got %v", opts.Temperature)
		}
		if out, ok := specialistStubs(prompt); ok {
			return out, nil
		}
		return "", errors.New("unexpected prompt")
	}

	o := &Orchestrator{Gateway: gw}
	if _, err := o.Run(context.Background(), "doc text"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(synthPrompt, "Revenue YoY Growth") {
		t.Fatal("synthesis prompt missing specialist data")
	}
	if !strings.Contains(synthPrompt, "doc text") {
		t.Fatal("synthesis prompt missing original document")
	}
}

func TestOrchestratorSynthesisParseFailureFailsRun(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		if strings.Contains(prompt, "DATA FROM SPECIALIST ANALYSTS") {
			return "sorry, here is some prose instead of JSON", nil
		}
		if out, ok := specialistStubs(prompt); ok {
			return out, nil
		}
		return "", errors.New("unexpected prompt")
	}

	o := &Orchestrator{Gateway: gw}
	result, err := o.Run(context.Background(), "doc text")
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	// No partial result survives a synthesis failure.
	if len(result.GrowthAndEfficiencyRatios) != 0 || result.OverallSummary != "" {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestOrchestratorSynthesisValidation(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		if strings.Contains(prompt, "DATA FROM SPECIALIST ANALYSTS") {
			return `{"financialHealthScore":{"score":150,"rating":"r","summary":"s"},"waterfallAnalysis":[],"overallSummary":"o"}`, nil
		}
		if out, ok := specialistStubs(prompt); ok {
			return out, nil
		}
		return "", errors.New("unexpected prompt")
	}

	o := &Orchestrator{Gateway: gw}
	if _, err := o.Run(context.Background(), "doc text"); !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis for out-of-range score, got %v", err)
	}
}

func TestOrchestratorHonorsCancellation(t *testing.T) {
	gw := &fakeGateway{}
	gw.generate = func(prompt string, opts llm.Options) (string, error) {
		if out, ok := specialistStubs(prompt); ok {
			return out, nil
		}
		return validSynthesisJSON, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := &Orchestrator{Gateway: gw}
	if _, err := o.Run(ctx, "doc text"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
