package documents

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Document // clientId -> documents
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Document),
	}
}

// Create stores a document for a client.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ClientID] = append(r.data[doc.ClientID], doc)
	return nil
}

// GetByID returns a document by ID for a client.
func (r *MemoryRepo) GetByID(ctx context.Context, clientID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.data[clientID]
	for i := range docs {
		if docs[i].ID == documentID {
			return docs[i], nil
		}
	}
	return Document{}, ErrNotFound
}

// GetCurrentByClient returns the most recently uploaded document for a client.
func (r *MemoryRepo) GetCurrentByClient(ctx context.Context, clientID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.data[clientID]
	if len(docs) == 0 {
		return Document{}, ErrNotFound
	}
	return docs[len(docs)-1], nil
}

// ListByClient returns documents for a client, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	clientDocs := r.data[clientID]
	r.mu.RUnlock()

	if len(clientDocs) == 0 || offset >= len(clientDocs) {
		return []Document{}, nil
	}

	docs := make([]Document, len(clientDocs))
	copy(docs, clientDocs)
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return docs[offset:end], nil
}

// DeleteByClient removes all documents for a client and returns what was removed.
func (r *MemoryRepo) DeleteByClient(ctx context.Context, clientID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[clientID]
	delete(r.data, clientID)
	return docs, nil
}

var _ Repo = (*MemoryRepo)(nil)
