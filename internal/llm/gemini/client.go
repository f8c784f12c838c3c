package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"prospectus-backend/internal/llm"
)

// Client implements llm.Gateway using the Gemini API.
// Library used: google.golang.org/genai.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient constructs a Gemini-backed gateway. The timeout bounds every
// request made through the underlying HTTP client.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Generate runs one prompt to completion.
func (c *Client) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), generationConfig(opts))
	if err != nil {
		return "", &llm.GatewayError{Op: "generate", Err: err}
	}
	return resp.Text(), nil
}

// GenerateStream runs one prompt, forwarding fragments as they arrive.
func (c *Client) GenerateStream(ctx context.Context, prompt string, opts llm.Options, emit func(chunk string) error) error {
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, genai.Text(prompt), generationConfig(opts)) {
		if err != nil {
			return &llm.GatewayError{Op: "generate_stream", Err: err}
		}
		if chunk := resp.Text(); chunk != "" {
			if err := emit(chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

// StartChat opens a multi-turn session seeded with the given history.
func (c *Client) StartChat(ctx context.Context, systemInstruction string, history []llm.Turn) (llm.Chat, error) {
	contents := historyContents(history)

	config := generationConfig(llm.Options{
		SystemInstruction: systemInstruction,
		ResponseFormat:    llm.FormatText,
		Temperature:       0.2,
	})
	chat, err := c.client.Chats.Create(ctx, c.model, config, contents)
	if err != nil {
		return nil, &llm.GatewayError{Op: "start_chat", Err: err}
	}
	return &chatSession{chat: chat}, nil
}

func historyContents(history []llm.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == llm.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	return contents
}

type chatSession struct {
	chat *genai.Chat
}

func (s *chatSession) SendStream(ctx context.Context, message string, emit func(chunk string) error) error {
	for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: message}) {
		if err != nil {
			return &llm.GatewayError{Op: "chat_send", Err: err}
		}
		if chunk := resp.Text(); chunk != "" {
			if err := emit(chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

func generationConfig(opts llm.Options) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](opts.Temperature),
	}
	if opts.ResponseFormat == llm.FormatJSON {
		config.ResponseMIMEType = "application/json"
	}
	if strings.TrimSpace(opts.SystemInstruction) != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}
	return config
}

var _ llm.Gateway = (*Client)(nil)
