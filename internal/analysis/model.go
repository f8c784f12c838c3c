package analysis

import "time"

// QueryAnswer is the structured reply to a single-shot document question.
type QueryAnswer struct {
	Answer          string  `json:"answer"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Citation        string  `json:"citation"`
}

// ExtractedRecord is one located data point with its exact source.
type ExtractedRecord struct {
	Figure       string   `json:"figure"`
	Period       string   `json:"period"`
	Citation     string   `json:"citation"`
	NumericValue *float64 `json:"numericValue"`
	Unit         *string  `json:"unit"`
}

// HealthScore is the synthesizer's 0-100 verdict with a qualitative rating.
type HealthScore struct {
	Score   float64 `json:"score"`
	Rating  string  `json:"rating"`
	Summary string  `json:"summary"`
}

// WaterfallItem is one signed line-item delta from revenue down to net income.
type WaterfallItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// FinancialRatio is one computed or extracted ratio with commentary.
type FinancialRatio struct {
	Metric     string `json:"metric"`
	Value      string `json:"value"`
	Period     string `json:"period"`
	Commentary string `json:"commentary"`
	Citation   string `json:"citation"`
	Sentiment  string `json:"sentiment,omitempty"`
}

// TrendItem is one year-over-year line-item movement.
type TrendItem struct {
	LineItem       string `json:"lineItem"`
	YoYChange      string `json:"yoyChange"`
	DeltaVsRevenue string `json:"deltaVsRevenue,omitempty"`
	Commentary     string `json:"commentary"`
	Citation       string `json:"citation"`
	Sentiment      string `json:"sentiment,omitempty"`
}

// QualitativeInsight is a non-numeric risk or strategy finding.
type QualitativeInsight struct {
	Topic     string `json:"topic"`
	Insight   string `json:"insight"`
	Citation  string `json:"citation"`
	Sentiment string `json:"sentiment"`
}

// HiddenInsight is a financially significant detail not visible in the
// standard statements, such as a large multi-year purchase commitment.
type HiddenInsight struct {
	Topic        string `json:"topic"`
	Insight      string `json:"insight"`
	Significance string `json:"significance"`
	Citation     string `json:"citation"`
}

// SectionSummary is a prose summary of one filing section with its source.
type SectionSummary struct {
	Summary  string `json:"summary"`
	Citation string `json:"citation"`
}

// IPOAnalysis covers the offering-specific sections of the filing.
type IPOAnalysis struct {
	UseOfProceeds         SectionSummary `json:"useOfProceeds"`
	CustomerConcentration SectionSummary `json:"customerConcentration"`
	ShareStructure        SectionSummary `json:"shareStructure"`
}

// Synthesis is the top-level output of the lead-analyst step.
type Synthesis struct {
	FinancialHealthScore HealthScore     `json:"financialHealthScore"`
	WaterfallAnalysis    []WaterfallItem `json:"waterfallAnalysis"`
	OverallSummary       string          `json:"overallSummary"`
}

// FinancialAnalysisContent is the final aggregate merged from the synthesis
// output and the eight specialist results. Field order is fixed by this
// schema, not by specialist completion order.
type FinancialAnalysisContent struct {
	FinancialHealthScore       HealthScore          `json:"financialHealthScore"`
	WaterfallAnalysis          []WaterfallItem      `json:"waterfallAnalysis"`
	OverallSummary             string               `json:"overallSummary"`
	ProfitabilityRatios        []FinancialRatio     `json:"profitabilityRatios"`
	GrowthAndEfficiencyRatios  []FinancialRatio     `json:"growthAndEfficiencyRatios"`
	LiquidityAndLeverageRatios []FinancialRatio     `json:"liquidityAndLeverageRatios"`
	TrendAnalysis              []TrendItem          `json:"trendAnalysis"`
	MiscellaneousInsights      []QualitativeInsight `json:"miscellaneousInsights"`
	HiddenFinancialInsights    []HiddenInsight      `json:"hiddenFinancialInsights"`
	CashFlowAnalysis           SectionSummary       `json:"cashFlowAnalysis"`
	IPOSpecificAnalysis        IPOAnalysis          `json:"ipoSpecificAnalysis"`
}

// Job statuses.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job tracks one asynchronous financial-analysis run over a document.
type Job struct {
	ID           string
	DocumentID   string
	ClientID     string
	Provider     string
	Model        string
	Status       string
	Result       *FinancialAnalysisContent
	ErrorCode    string
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}
