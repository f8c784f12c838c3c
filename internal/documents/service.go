package documents

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"prospectus-backend/internal/extract"
	"prospectus-backend/internal/shared/storage/object"
	"prospectus-backend/internal/shared/telemetry"
)

// Extractor converts PDF bytes into concatenated page text.
type Extractor interface {
	Extract(data []byte) (text string, pageCount int, err error)
}

// SessionPurger drops any chat sessions tied to a client's documents.
type SessionPurger interface {
	PurgeByClient(clientID string)
}

// Service contains business logic for documents. Text extraction happens at
// upload time so every later analysis call reads the stored text instead of
// re-parsing the PDF.
type Service struct {
	Store     object.ObjectStore
	Repo      Repo
	Extractor Extractor     // defaults to extract.PDF{}
	Sessions  SessionPurger // optional
	Provider  string
}

// Upload validates, extracts, and stores a prospectus PDF.
func (s *Service) Upload(ctx context.Context, clientID, fileName, mimeType string, data []byte) (Document, error) {
	if clientID == "" || strings.TrimSpace(fileName) == "" {
		return Document{}, ErrInvalidInput
	}
	if extract.NormalizeMimeType(mimeType) != extract.MimePDF {
		return Document{}, ErrUnsupportedType
	}
	if len(data) == 0 {
		return Document{}, ErrInvalidInput
	}

	extractor := s.Extractor
	if extractor == nil {
		extractor = extract.PDF{}
	}
	text, pageCount, err := extractor.Extract(data)
	if err != nil {
		telemetry.Warn("documents.extract_failed", map[string]any{
			"client_id": clientID,
			"file_name": fileName,
			"error":     err.Error(),
		})
		return Document{}, ErrExtraction
	}

	storageKey, size, _, err := s.Store.Save(ctx, clientID, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, err
	}

	extractedKey := storageKey + ".extracted.txt"
	if _, err := s.Store.SaveWithKey(ctx, extractedKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return Document{}, err
	}

	now := time.Now().UTC()
	doc := Document{
		ID:               uuid.NewString(),
		ClientID:         clientID,
		FileName:         fileName,
		MimeType:         extract.MimePDF,
		SizeBytes:        size,
		StorageProvider:  s.Provider,
		StorageKey:       storageKey,
		ExtractedTextKey: extractedKey,
		ExtractedAt:      &now,
		PageCount:        pageCount,
		CreatedAt:        now,
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	telemetry.Info("documents.uploaded", map[string]any{
		"client_id":   clientID,
		"document_id": doc.ID,
		"size_bytes":  size,
		"page_count":  pageCount,
	})
	return doc, nil
}

// Get returns a document by ID for a client.
func (s *Service) Get(ctx context.Context, clientID, documentID string) (Document, error) {
	if clientID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, clientID, documentID)
}

// Current returns the most recently uploaded document for a client.
func (s *Service) Current(ctx context.Context, clientID string) (Document, error) {
	if clientID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetCurrentByClient(ctx, clientID)
}

// List returns documents for a client ordered newest-first.
func (s *Service) List(ctx context.Context, clientID string, limit, offset int) ([]Document, error) {
	if clientID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByClient(ctx, clientID, limit, offset)
}

// Text loads the extracted text for a document. An empty documentID resolves
// to the client's current document.
func (s *Service) Text(ctx context.Context, clientID, documentID string) (Document, string, error) {
	var doc Document
	var err error
	if documentID == "" {
		doc, err = s.Current(ctx, clientID)
	} else {
		doc, err = s.Get(ctx, clientID, documentID)
	}
	if err != nil {
		return Document{}, "", err
	}
	if doc.ExtractedTextKey == "" {
		return Document{}, "", ErrExtraction
	}

	reader, err := s.Store.Open(ctx, doc.ExtractedTextKey)
	if err != nil {
		return Document{}, "", err
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return Document{}, "", err
	}
	return doc, string(raw), nil
}

// Reset discards all of a client's documents, their stored objects, and any
// chat sessions seeded from them.
func (s *Service) Reset(ctx context.Context, clientID string) error {
	if clientID == "" {
		return ErrInvalidInput
	}

	docs, err := s.Repo.DeleteByClient(ctx, clientID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		for _, key := range []string{doc.StorageKey, doc.ExtractedTextKey} {
			if key == "" {
				continue
			}
			if err := s.Store.Delete(ctx, key); err != nil {
				telemetry.Warn("documents.delete_object_failed", map[string]any{
					"client_id":   clientID,
					"document_id": doc.ID,
					"storage_key": key,
					"error":       err.Error(),
				})
			}
		}
	}
	if s.Sessions != nil {
		s.Sessions.PurgeByClient(clientID)
	}

	telemetry.Info("documents.reset", map[string]any{
		"client_id": clientID,
		"count":     len(docs),
	})
	return nil
}
