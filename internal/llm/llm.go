package llm

import (
	"context"
	"errors"
	"fmt"
)

// Format selects the response format the model is asked to produce.
type Format string

const (
	// FormatText requests free-form prose.
	FormatText Format = "text"
	// FormatJSON requests a single JSON value as the whole response.
	FormatJSON Format = "json"
)

// Roles for conversation turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Options tunes a single generation call.
type Options struct {
	SystemInstruction string
	ResponseFormat    Format
	Temperature       float32
}

// Turn is one role-tagged entry of a conversation history.
type Turn struct {
	Role string
	Text string
}

// Gateway abstracts the hosted generative-model service. It owns
// authentication and transport; callers never touch the network directly.
// One network call per invocation, no caching, no retry.
type Gateway interface {
	// Generate runs one prompt to completion and returns the raw response text.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	// GenerateStream runs one prompt, delivering response fragments to emit in
	// arrival order. A non-nil error from emit aborts the stream.
	GenerateStream(ctx context.Context, prompt string, opts Options, emit func(chunk string) error) error
	// StartChat opens a multi-turn session seeded with the given history.
	StartChat(ctx context.Context, systemInstruction string, history []Turn) (Chat, error)
}

// Chat is a server-held handle to one multi-turn conversation.
type Chat interface {
	// SendStream appends a user message and streams the model's reply
	// fragments to emit in arrival order.
	SendStream(ctx context.Context, message string, emit func(chunk string) error) error
}

// GatewayError wraps a transport or auth failure from the model service.
// Malformed model output is not a GatewayError; that is the parser's concern.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ErrNotConfigured is returned by the placeholder gateway.
var ErrNotConfigured = errors.New("model gateway not configured")

// Placeholder is a stub Gateway for environments without an API key.
type Placeholder struct{}

func (Placeholder) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return "", &GatewayError{Op: "generate", Err: ErrNotConfigured}
}

func (Placeholder) GenerateStream(ctx context.Context, prompt string, opts Options, emit func(string) error) error {
	return &GatewayError{Op: "generate_stream", Err: ErrNotConfigured}
}

func (Placeholder) StartChat(ctx context.Context, systemInstruction string, history []Turn) (Chat, error) {
	return nil, &GatewayError{Op: "start_chat", Err: ErrNotConfigured}
}

var _ Gateway = Placeholder{}
