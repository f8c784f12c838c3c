package analysis

import "fmt"

// Prompt wording is product copy carried as-is; handlers and services treat
// it as opaque configuration.

const querySystemInstruction = `You are a team of two expert financial analysts reviewing an S-1 filing. One analyst is a skeptical risk assessor, the other is a growth-focused strategist. Your combined goal is to provide a balanced, accurate, and cited answer based *only* on the provided document. Never invent information or use outside knowledge.`

const extractSystemInstruction = `You are an automated financial data extraction agent. You are part of a larger analysis team. Your specific task is to find and extract specific data points with perfect accuracy from the provided document and provide their exact source. You operate with a step-by-step, chain-of-thought process to ensure precision.`

const synthesizerSystemInstruction = `You are a top-tier lead financial analyst. You have received structured data from your team of specialist analysts who reviewed an S-1 filing. Your task is to verify this data against the original document and synthesize it into a final, high-level summary.`

func contextBlock(documentText string) string {
	return fmt.Sprintf("CONTEXT:\n---\n%s\n---", documentText)
}

func queryPrompt(documentText, query string) string {
	return fmt.Sprintf(`
%s

QUERY: "%s"

INSTRUCTIONS:
1.  **Initial Scan:** First, quickly read the entire CONTEXT to understand its structure.
2.  **Targeted Retrieval:** Locate the most relevant sections or sentences that address the QUERY.
3.  **Collaborative Analysis:** As a team, synthesize the information. The risk analyst should point out caveats, while the growth strategist highlights potential.
4.  **Synthesize & Cite:** Formulate a single, concise 'answer' that reflects this balanced view. Begin the answer by citing the source, for example, "According to the 'Risk Factors' section on page 20...".
5.  **Confidence Score:** Assign a 'confidenceScore' (a number between 0.0 and 1.0) based on the clarity and directness of the source material. 1.0 means the information is explicitly stated.
6.  **Verbatim Quote:** Extract the most critical sentence or phrase from the CONTEXT as the 'citation'.
7.  **Final JSON Output:** Your response MUST be in a single, valid JSON object format with three keys: "answer", "confidenceScore", and "citation". Do not add any text before or after the JSON object.
8.  **Not Found:** If you cannot find the answer in the CONTEXT, return an "answer" of "I could not find an answer to this question in the provided document.", a "confidenceScore" of 0.0, and a "citation" of "Not found.".
`, contextBlock(documentText), query)
}

func extractPrompt(documentText, dataType string) string {
	return fmt.Sprintf(`
%s

TASK:
1.  **Define Target:** Your target is any data related to "%s".
2.  **Systematic Scan:** Read through the CONTEXT from beginning to end, specifically looking for mentions of the target data and associated time periods (e.g., 'fiscal year ended...', 'six months ended...').
3.  **Extract & Verify:** For each instance found, extract the following:
    *   'figure': The exact text value (e.g., "$264.7 million", "174%%").
    *   'period': The exact time period (e.g., "fiscal year ended January 31, 2020").
    *   'numericValue': The raw numerical value. If the figure is "$264.7 million", this should be 264.7. If it's "174%%", it should be 174. If it is non-numeric text, this should be null.
    *   'unit': The unit of the numeric value (e.g., "million", "%%", "dollars"). If no unit, this should be null.
    *   'citation': The full sentence it appeared in as a 'citation'.
4.  **Format Output:** Your response MUST be in a single, valid JSON array format. Do not add any text before or after the JSON array. Each object in the array should have five keys: "figure", "period", "numericValue", "unit", and "citation".
5.  **Not Found:** If no data for "%s" is found in the CONTEXT, return an empty array [].
`, contextBlock(documentText), dataType, dataType)
}

func profitabilityPrompt(contextPrompt string) string {
	return contextPrompt + `
TASK: You are an analyst specializing in profitability. Extract and calculate the following ratios for the most recent full fiscal year mentioned. Return a valid JSON array.
- Gross Margin: (Gross Profit / Revenue) * 100%
- Operating Margin: (Operating Income / Revenue) * 100%
- Net Margin: (Net Income / Revenue) * 100%
For each, provide: metric, value, period, commentary, citation, and sentiment. If data is missing, state "Not Available".
`
}

func growthPrompt(contextPrompt string) string {
	return contextPrompt + `
TASK: You are an analyst specializing in growth metrics. Extract the following from the document. Return a valid JSON array.
- Revenue YoY Growth
- Revenue Retention Rate
For each, provide: metric, value, period, commentary, citation, and sentiment. If data is missing, state "Not Available".
`
}

func liquidityPrompt(contextPrompt string) string {
	return contextPrompt + `
TASK: You are an analyst specializing in balance sheet health. Extract and calculate the following ratios for the most recent balance sheet date. Return a valid JSON array.
- Current Ratio: (Current Assets / Current Liabilities)
- Cash Ratio: (Cash and Cash Equivalents / Current Liabilities)
- Debt-to-Equity Ratio: (Total Debt / Total Equity)
For each, provide: metric, value, period, commentary, citation, and sentiment. If data is missing, state "Not Available".
`
}

func trendPrompt(contextPrompt string) string {
	return contextPrompt + `
TASK: You are an analyst specializing in financial trends. Analyze the Year-over-Year (YoY) change for the following line items. Return a valid JSON array.
- Revenue
- Operating Expenses
- Net Income (Loss)
For each, provide: lineItem, yoyChange, deltaVsRevenue (for OpEx, calculate as (OpEx growth % - Revenue growth %)), commentary, citation, and sentiment.
`
}

func miscPrompt(contextPrompt string) string {
	return contextPrompt + `
TASK: You are a qualitative risk and strategy analyst. Scrutinize the document for non-numeric insights. Identify and summarize findings on the following topics: Competitive Advantages, Key Person Dependencies, Regulatory Risks, Customer Concentration, and Future Growth Catalysts. Return a valid JSON array.
For each, provide: topic, insight, citation, and sentiment.
`
}

func hiddenInsightsPrompt(contextPrompt string) string {
	return contextPrompt + `
TASK: You are an "Investigative Financial Journalist" AI. Your job is to find financially significant details that are NOT obvious from standard financial statements. Look for things like large, multi-year purchase commitments, major lease obligations, or other unusual cash outlays mentioned in the text.
EXAMPLE: An S-1 might mention "we have a non-cancelable commitment to spend $545.0 million on cloud hosting services over the next five years." This is a huge insight!
For each finding, provide: topic, insight, significance (explain WHY it matters, e.g., "This amounts to nearly $300k/day"), and citation.
Return a valid JSON array of your findings. If none are found, return an empty array.
`
}

func ipoPrompt(contextPrompt string) string {
	return contextPrompt + `
TASK: You are an IPO specialist. Summarize the key points for the following sections. Return a single valid JSON object.
- useOfProceeds: { summary, citation }
- customerConcentration: { summary, citation }
- shareStructure: { summary, citation }
`
}

func cashFlowPrompt(contextPrompt string) string {
	return contextPrompt + `
TASK: You are a cash flow analyst. Analyze free cash flow, burn rate, and cash on hand. Return a single valid JSON object with a 'summary' and 'citation'.
`
}

func synthesizerPrompt(documentText, specialistJSON string) string {
	return fmt.Sprintf(`
ORIGINAL S-1 DOCUMENT (FOR VERIFICATION):
---
%s
---

DATA FROM SPECIALIST ANALYSTS:
---
%s
---

TASK:
Based on a holistic review of the SPECIALIST DATA and **cross-referencing it against the ORIGINAL S-1 DOCUMENT**, generate a final JSON object. Your entire response must be only the JSON object.
1.  **"financialHealthScore"**: { "score": (0-100), "rating": "e.g., 'High Growth, High Burn'", "summary": "Brief justification for the score, citing specifics from the specialist data." }
2.  **"waterfallAnalysis"**: A JSON array for a profitability waterfall from Revenue to Net Loss for the most recent full year. Fields: "label", "value".
3.  **"overallSummary"**: A concise, high-level summary of the company's financial health, key strengths, and risks based on all available data. Ensure your summary reflects the verified findings.
`, documentText, specialistJSON)
}
