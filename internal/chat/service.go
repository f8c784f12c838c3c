package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"prospectus-backend/internal/citations"
	"prospectus-backend/internal/documents"
	"prospectus-backend/internal/llm"
	"prospectus-backend/internal/shared/metrics"
	"prospectus-backend/internal/shared/telemetry"
)

// DocumentText loads the extracted text for a client's document. An empty
// documentID resolves to the current document.
type DocumentText interface {
	Text(ctx context.Context, clientID, documentID string) (documents.Document, string, error)
}

// Service contains business logic for chat sessions.
type Service struct {
	Docs    DocumentText
	Gateway llm.Gateway
	Store   *Store
}

// Create opens a chat session seeded with the document text and an initial
// model acknowledgment, and records a visible greeting.
func (s *Service) Create(ctx context.Context, clientID, documentID string) (Session, error) {
	if clientID == "" {
		return Session{}, ErrInvalidInput
	}
	doc, text, err := s.Docs.Text(ctx, clientID, documentID)
	if err != nil {
		return Session{}, err
	}

	handle, err := s.Gateway.StartChat(ctx, chatSystemInstruction, []llm.Turn{
		{Role: llm.RoleUser, Text: seedUserTurn(text)},
		{Role: llm.RoleModel, Text: seedAcknowledgment},
	})
	if err != nil {
		return Session{}, err
	}

	now := time.Now().UTC()
	session := Session{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		DocumentID: doc.ID,
		CreatedAt:  now,
		Messages: []Message{{
			ID:        uuid.NewString(),
			Role:      RoleModel,
			Text:      greeting,
			CreatedAt: now,
		}},
	}
	s.Store.Put(session, handle)

	telemetry.Info("chat.session_created", map[string]any{
		"client_id":   clientID,
		"document_id": doc.ID,
		"session_id":  session.ID,
	})
	return session, nil
}

// Get returns a session transcript.
func (s *Service) Get(clientID, sessionID string) (Session, error) {
	if clientID == "" || sessionID == "" {
		return Session{}, ErrInvalidInput
	}
	return s.Store.Get(clientID, sessionID)
}

// Send streams the model's reply to one user message, forwarding fragments
// to emit in arrival order. The returned message holds the normalized final
// body and its citation table. A mid-stream failure leaves no partial model
// turn in the transcript.
func (s *Service) Send(ctx context.Context, clientID, sessionID, message string, emit func(chunk string) error) (Message, error) {
	if strings.TrimSpace(message) == "" {
		return Message{}, ErrInvalidInput
	}

	handle, err := s.Store.acquire(clientID, sessionID)
	if err != nil {
		return Message{}, err
	}
	defer s.Store.release(sessionID)

	s.Store.append(sessionID, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      message,
		CreatedAt: time.Now().UTC(),
	})

	metrics.IncChatStream()
	var raw strings.Builder
	streamErr := handle.SendStream(ctx, message, func(chunk string) error {
		raw.WriteString(chunk)
		return emit(chunk)
	})
	if streamErr != nil {
		metrics.IncChatStreamFailure()
		telemetry.Warn("chat.stream_failed", map[string]any{
			"client_id":  clientID,
			"session_id": sessionID,
			"error":      streamErr.Error(),
		})
		return Message{}, streamErr
	}

	normalized := citations.Normalize(raw.String())
	reply := Message{
		ID:        uuid.NewString(),
		Role:      RoleModel,
		Text:      normalized.Body,
		Citations: normalized.Citations,
		CreatedAt: time.Now().UTC(),
	}
	s.Store.append(sessionID, reply)
	return reply, nil
}
