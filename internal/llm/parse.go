package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"prospectus-backend/internal/shared/telemetry"
)

// Models asked for JSON sometimes wrap it in a fenced code block, with or
// without a language tag. The fence must span the whole (trimmed) response.
var fencedBlock = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

const rawLogLimit = 2000

// ParseStructured decodes a model response into T, unwrapping one surrounding
// fenced block if present. On decode failure it logs the raw text for
// diagnosis and reports ok=false; it never panics or returns an error. Shape
// validation beyond syntactic decoding is the caller's responsibility.
func ParseStructured[T any](raw string) (T, bool) {
	var out T
	body := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(body); m != nil && m[2] != "" {
		body = strings.TrimSpace(m[2])
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		telemetry.Error("llm.parse_failed", map[string]any{
			"error": err.Error(),
			"raw":   truncate(raw, rawLogLimit),
		})
		var zero T
		return zero, false
	}
	return out, true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…(truncated)"
}
