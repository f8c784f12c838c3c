package analysis

import (
	"context"
	"time"

	"prospectus-backend/internal/llm"
	"prospectus-backend/internal/shared/metrics"
	"prospectus-backend/internal/shared/telemetry"
)

const defaultSpecialistTimeout = 90 * time.Second

// runSpecialist executes one specialist prompt and decodes its JSON result.
// Any failure, transport or parse, is swallowed into the caller-supplied
// default so a single bad specialist never sinks the whole analysis.
func runSpecialist[T any](ctx context.Context, gw llm.Gateway, timeout time.Duration, name, systemInstruction, prompt string, defaultValue T) T {
	if timeout <= 0 {
		timeout = defaultSpecialistTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := gw.Generate(ctx, prompt, llm.Options{
		SystemInstruction: systemInstruction,
		ResponseFormat:    llm.FormatJSON,
		Temperature:       0.1,
	})
	if err != nil {
		metrics.IncSpecialistFallback()
		telemetry.Warn("analysis.specialist_failed", map[string]any{
			"specialist": name,
			"error":      err.Error(),
		})
		return defaultValue
	}

	parsed, ok := llm.ParseStructured[T](raw)
	if !ok {
		metrics.IncSpecialistFallback()
		telemetry.Warn("analysis.specialist_parse_failed", map[string]any{
			"specialist": name,
		})
		return defaultValue
	}
	return parsed
}
