// Package citations normalizes footnote-style citation protocol emitted by
// the model inside conversational answers. It is pure text transformation:
// no network, no parse-failure path. Input that matches no recognized
// pattern passes through unchanged.
package citations

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Map holds citation number -> verbatim quoted source text. Keys keep the
// order of their first appearance in the raw text; a repeated definition
// overwrites the value but keeps the original position.
type Map struct {
	order []string
	defs  map[string]string
}

// NewMap returns an empty citation map.
func NewMap() *Map {
	return &Map{defs: make(map[string]string)}
}

// Set records a definition. Last write wins for the value.
func (m *Map) Set(key, value string) {
	if _, seen := m.defs[key]; !seen {
		m.order = append(m.order, key)
	}
	m.defs[key] = value
}

// Get looks up the quoted text for a citation number.
func (m *Map) Get(key string) (string, bool) {
	v, ok := m.defs[key]
	return v, ok
}

// Len reports the number of distinct citation numbers.
func (m *Map) Len() int { return len(m.order) }

// Keys returns the citation numbers in first-appearance order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

// MarshalJSON emits an object whose keys follow first-appearance order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.defs[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is a model answer ready for markdown rendering plus the recovered
// citation lookup table.
type Result struct {
	Body      string
	Citations *Map
}

var (
	defLine = regexp.MustCompile(`(?m)^\[\^(\d+)\]:\s*(.*)$`)

	// Whole definition lines, including the line break, for removal from the
	// rendered body.
	defLineSpan = regexp.MustCompile(`(?m)^\[\^\d+\]:\s*.*\r?\n?`)

	// Trailing "Citations" heading with zero to three leading hash marks.
	// The word must fill the whole line; prose that happens to start with
	// "Citations" is not a heading.
	citationsHeading = regexp.MustCompile(`(?mi)^[ \t]*#{0,3}[ \t]*citations[ \t]*(?:\r?\n|$)`)

	// Bare bracketed number. The captured colon distinguishes a stray
	// definition remnant, which must not be rewritten into a marker.
	bareMarker = regexp.MustCompile(`\[(\d+)\](:?)`)

	twoMarker   = regexp.MustCompile(`\[\^(\d+),\s*\^(\d+)\]`)
	threeMarker = regexp.MustCompile(`\[\^(\d+),\s*\^(\d+),\s*\^(\d+)\]`)
)

// Normalize extracts the citation definitions from raw model output, strips
// the definitions block from the visible text, and repairs known malformed
// marker variants. Combined markers of four or more numbers are left as-is.
func Normalize(raw string) Result {
	defs := NewMap()
	for _, m := range defLine.FindAllStringSubmatch(raw, -1) {
		defs.Set(m[1], trimQuotes(m[2]))
	}

	body := raw
	if loc := citationsHeading.FindStringIndex(body); loc != nil {
		body = body[:loc[0]] + body[loc[1]:]
	}
	body = defLineSpan.ReplaceAllString(body, "")
	body = RepairMarkers(body)

	return Result{Body: strings.TrimSpace(body), Citations: defs}
}

// RepairMarkers rewrites known malformed citation-marker variants into the
// canonical single-marker form. Rule order is fixed. Applying it to already
// canonical text is a no-op.
func RepairMarkers(body string) string {
	body = bareMarker.ReplaceAllStringFunc(body, func(match string) string {
		m := bareMarker.FindStringSubmatch(match)
		if m[2] == ":" {
			return match
		}
		return "[^" + m[1] + "]"
	})
	body = twoMarker.ReplaceAllString(body, "[^$1] [^$2]")
	body = threeMarker.ReplaceAllString(body, "[^$1] [^$2] [^$3]")
	return body
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, "“", "”"} {
		s = strings.TrimPrefix(s, q)
		s = strings.TrimSuffix(s, q)
	}
	return s
}
