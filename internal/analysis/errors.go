package analysis

import "errors"

var (
	// ErrNotFound indicates the analysis job does not exist for the client.
	ErrNotFound = errors.New("analysis not found")
	// ErrInvalidInput indicates missing or malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelOutput indicates the model response could not be decoded into
	// the expected shape.
	ErrModelOutput = errors.New("model returned unusable output")
	// ErrSynthesis indicates the final aggregating step failed; no partial
	// result is kept.
	ErrSynthesis = errors.New("synthesis step failed")
)

// Failure codes recorded on failed jobs.
const (
	ErrorCodeGateway     = "model_gateway"
	ErrorCodeTimeout     = "model_timeout"
	ErrorCodeModelOutput = "model_output_invalid"
	ErrorCodeStorage     = "storage"
	ErrorCodeInternal    = "internal"
)
