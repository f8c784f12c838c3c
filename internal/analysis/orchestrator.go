package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"prospectus-backend/internal/llm"
	"prospectus-backend/internal/shared/telemetry"
)

// Orchestrator runs the eight specialist prompts concurrently, then one
// synthesis prompt over their combined output and the original document.
type Orchestrator struct {
	Gateway           llm.Gateway
	SpecialistTimeout time.Duration
}

// specialistData carries the collected specialist results into the
// synthesizer prompt; key names are part of the prompt contract.
type specialistData struct {
	ProfitabilityRatios        []FinancialRatio     `json:"profitabilityRatios"`
	GrowthAndEfficiencyRatios  []FinancialRatio     `json:"growthAndEfficiencyRatios"`
	LiquidityAndLeverageRatios []FinancialRatio     `json:"liquidityAndLeverageRatios"`
	TrendAnalysis              []TrendItem          `json:"trendAnalysis"`
	MiscellaneousInsights      []QualitativeInsight `json:"miscellaneousInsights"`
	HiddenFinancialInsights    []HiddenInsight      `json:"hiddenFinancialInsights"`
	IPOSpecificAnalysis        IPOAnalysis          `json:"ipoSpecificAnalysis"`
	CashFlowAnalysis           SectionSummary       `json:"cashFlowAnalysis"`
}

// Run produces the full financial analysis for one document. Specialists
// that fail contribute their default value; a synthesis failure fails the
// whole run with no partial result.
func (o *Orchestrator) Run(ctx context.Context, documentText string) (FinancialAnalysisContent, error) {
	contextPrompt := contextBlock(documentText)
	timeout := o.SpecialistTimeout

	var data specialistData

	// Fan out all eight before awaiting any, so the network latencies
	// overlap. Each goroutine writes only its own field; runSpecialist
	// absorbs failures, so the join only fails on context cancellation.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data.ProfitabilityRatios = runSpecialist(gctx, o.Gateway, timeout,
			"profitability", "You are a profitability analyst.", profitabilityPrompt(contextPrompt), []FinancialRatio{})
		return nil
	})
	g.Go(func() error {
		data.GrowthAndEfficiencyRatios = runSpecialist(gctx, o.Gateway, timeout,
			"growth", "You are a growth metrics analyst.", growthPrompt(contextPrompt), []FinancialRatio{})
		return nil
	})
	g.Go(func() error {
		data.LiquidityAndLeverageRatios = runSpecialist(gctx, o.Gateway, timeout,
			"liquidity", "You are a balance sheet analyst.", liquidityPrompt(contextPrompt), []FinancialRatio{})
		return nil
	})
	g.Go(func() error {
		data.TrendAnalysis = runSpecialist(gctx, o.Gateway, timeout,
			"trends", "You are a trends analyst.", trendPrompt(contextPrompt), []TrendItem{})
		return nil
	})
	g.Go(func() error {
		data.MiscellaneousInsights = runSpecialist(gctx, o.Gateway, timeout,
			"qualitative", "You are a qualitative risk analyst.", miscPrompt(contextPrompt), []QualitativeInsight{})
		return nil
	})
	g.Go(func() error {
		data.HiddenFinancialInsights = runSpecialist(gctx, o.Gateway, timeout,
			"hidden_insights", "You are an investigative financial journalist.", hiddenInsightsPrompt(contextPrompt), []HiddenInsight{})
		return nil
	})
	g.Go(func() error {
		data.IPOSpecificAnalysis = runSpecialist(gctx, o.Gateway, timeout,
			"ipo", "You are an IPO specialist.", ipoPrompt(contextPrompt), IPOAnalysis{})
		return nil
	})
	g.Go(func() error {
		data.CashFlowAnalysis = runSpecialist(gctx, o.Gateway, timeout,
			"cash_flow", "You are a cash flow analyst.", cashFlowPrompt(contextPrompt), SectionSummary{})
		return nil
	})
	if err := g.Wait(); err != nil {
		return FinancialAnalysisContent{}, err
	}
	if err := ctx.Err(); err != nil {
		return FinancialAnalysisContent{}, err
	}

	synthesis, err := o.synthesize(ctx, documentText, data)
	if err != nil {
		return FinancialAnalysisContent{}, err
	}

	return FinancialAnalysisContent{
		FinancialHealthScore:       synthesis.FinancialHealthScore,
		WaterfallAnalysis:          synthesis.WaterfallAnalysis,
		OverallSummary:             synthesis.OverallSummary,
		ProfitabilityRatios:        data.ProfitabilityRatios,
		GrowthAndEfficiencyRatios:  data.GrowthAndEfficiencyRatios,
		LiquidityAndLeverageRatios: data.LiquidityAndLeverageRatios,
		TrendAnalysis:              data.TrendAnalysis,
		MiscellaneousInsights:      data.MiscellaneousInsights,
		HiddenFinancialInsights:    data.HiddenFinancialInsights,
		CashFlowAnalysis:           data.CashFlowAnalysis,
		IPOSpecificAnalysis:        data.IPOSpecificAnalysis,
	}, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, documentText string, data specialistData) (Synthesis, error) {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return Synthesis{}, fmt.Errorf("encode specialist data: %w", err)
	}

	raw, err := o.Gateway.Generate(ctx, synthesizerPrompt(documentText, string(payload)), llm.Options{
		SystemInstruction: synthesizerSystemInstruction,
		ResponseFormat:    llm.FormatJSON,
		Temperature:       0.2,
	})
	if err != nil {
		return Synthesis{}, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	synthesis, ok := llm.ParseStructured[Synthesis](raw)
	if !ok {
		return Synthesis{}, ErrSynthesis
	}
	if err := validateSynthesis(synthesis); err != nil {
		telemetry.Warn("analysis.synthesis_invalid", map[string]any{
			"error": err.Error(),
		})
		return Synthesis{}, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	return synthesis, nil
}

func validateSynthesis(s Synthesis) error {
	if s.FinancialHealthScore.Score < 0 || s.FinancialHealthScore.Score > 100 {
		return fmt.Errorf("score %v out of range", s.FinancialHealthScore.Score)
	}
	if s.FinancialHealthScore.Rating == "" {
		return fmt.Errorf("missing rating")
	}
	if s.FinancialHealthScore.Summary == "" {
		return fmt.Errorf("missing score summary")
	}
	if s.OverallSummary == "" {
		return fmt.Errorf("missing overall summary")
	}
	return nil
}
