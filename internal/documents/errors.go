package documents

import "errors"

var (
	// ErrNotFound indicates the document does not exist for the client.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidInput indicates missing or malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedType indicates the uploaded file is not a PDF.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrExtraction indicates the PDF could not be converted to text.
	ErrExtraction = errors.New("failed to extract document text")
)
