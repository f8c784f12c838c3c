package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MimePDF is the only ingestion format the prospectus pipeline accepts.
const MimePDF = "application/pdf"

// ErrUnsupportedType is returned for uploads that are not PDF files.
var ErrUnsupportedType = errors.New("unsupported file type")

// PDF extracts prospectus text from PDF bytes.
// Library used: github.com/ledongthuc/pdf.
type PDF struct{}

// Extract returns the document's plain text, pages in order 1..N joined by
// blank lines, plus the page count.
func (PDF) Extract(data []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, errors.New("empty pdf data")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("read pdf: %w", err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return strings.Join(pages, "\n\n"), total, nil
}

// NormalizeMimeType lowercases and strips parameters from a content type.
func NormalizeMimeType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}
