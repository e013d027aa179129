package supabase

import (
	"context"
	"sync"

	"fraccional/internal/model"
)

// SessionStore persists the provider session between calls. Browser
// requests use a cookie-backed store; long-lived clients use memory or a
// file.
type SessionStore interface {
	Load(ctx context.Context) (*model.Session, error)
	Save(ctx context.Context, session *model.Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	session *model.Session
}

func NewMemoryStore(initial *model.Session) *MemoryStore {
	return &MemoryStore{session: cloneSession(initial)}
}

func (s *MemoryStore) Load(_ context.Context) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.session), nil
}

func (s *MemoryStore) Save(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	s.session = cloneSession(session)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	return nil
}

func cloneSession(session *model.Session) *model.Session {
	if session == nil {
		return nil
	}
	out := *session
	if session.ExpiresAt != nil {
		exp := *session.ExpiresAt
		out.ExpiresAt = &exp
	}
	return &out
}
