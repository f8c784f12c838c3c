package chat

import (
	"errors"
	"time"

	"prospectus-backend/internal/citations"
)

// Roles for transcript messages.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of a chat transcript. Model messages carry the
// normalized body and the recovered citation table.
type Message struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Text      string         `json:"text"`
	Citations *citations.Map `json:"citations,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Session is one conversation over a single document.
type Session struct {
	ID         string    `json:"sessionId"`
	ClientID   string    `json:"-"`
	DocumentID string    `json:"documentId"`
	CreatedAt  time.Time `json:"createdAt"`
	Messages   []Message `json:"messages"`
}

var (
	// ErrNotFound indicates the session does not exist for the client.
	ErrNotFound = errors.New("chat session not found")
	// ErrInvalidInput indicates missing or malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBusy indicates a message is already streaming on this session.
	ErrBusy = errors.New("chat session is busy")
)
