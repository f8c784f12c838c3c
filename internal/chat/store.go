package chat

import (
	"sync"

	"prospectus-backend/internal/llm"
)

type entry struct {
	session Session
	chat    llm.Chat
	busy    bool
}

// Store holds live chat sessions in memory. Sessions are ephemeral: they
// hold a server-side model conversation handle that cannot be rebuilt from
// a database row, and they are discarded on document reset.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry // sessionId -> entry
}

// NewStore constructs a Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Put registers a new session.
func (s *Store) Put(session Session, chat llm.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session.ID] = &entry{session: session, chat: chat}
}

// Get returns a snapshot of a session's transcript.
func (s *Store) Get(clientID, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok || e.session.ClientID != clientID {
		return Session{}, ErrNotFound
	}
	return snapshot(e.session), nil
}

// acquire marks a session busy for one streaming exchange.
func (s *Store) acquire(clientID, sessionID string) (llm.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok || e.session.ClientID != clientID {
		return nil, ErrNotFound
	}
	if e.busy {
		return nil, ErrBusy
	}
	e.busy = true
	return e.chat, nil
}

func (s *Store) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sessionID]; ok {
		e.busy = false
	}
}

func (s *Store) append(sessionID string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sessionID]; ok {
		e.session.Messages = append(e.session.Messages, msg)
	}
}

// PurgeByClient drops every session owned by a client. Implements the
// documents reset hook.
func (s *Store) PurgeByClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.session.ClientID == clientID {
			delete(s.entries, id)
		}
	}
}

func snapshot(session Session) Session {
	out := session
	out.Messages = make([]Message, len(session.Messages))
	copy(out.Messages, session.Messages)
	return out
}
