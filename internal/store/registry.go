package store

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Session is the state of one dashboard user
type Session struct {
	UserID   string
	UI       *UIStore
	Requests *RequestsStore
}

// Saved returns the session's persistable state
func (s *Session) Saved() Saved {
	return Saved{UI: s.UI.Persisted(), Requests: s.Requests.Persisted()}
}

// Registry hands out one Session per user, restoring preferences on first use
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	persister Persister
}

// NewRegistry creates a registry. A nil persister keeps preferences in memory only.
func NewRegistry(p Persister) *Registry {
	return &Registry{sessions: make(map[string]*Session), persister: p}
}

// Session returns the user's session, loading stored preferences the first time
func (r *Registry) Session(ctx context.Context, userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[userID]; ok {
		return s, nil
	}

	saved := DefaultSaved()
	if r.persister != nil {
		stored, ok, err := r.persister.Load(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to restore session for %s: %w", userID, err)
		}
		if ok {
			saved = withDefaults(stored)
		}
	}

	s := &Session{
		UserID:   userID,
		UI:       NewUIStore(saved.UI),
		Requests: NewRequestsStore(saved.Requests),
	}
	r.sessions[userID] = s
	return s, nil
}

// Save writes the user's preferences through the persister
func (r *Registry) Save(ctx context.Context, s *Session) error {
	if r.persister == nil {
		return nil
	}
	if err := r.persister.Save(ctx, s.UserID, s.Saved()); err != nil {
		log.Printf("❌ Failed to persist preferences for %s: %v", s.UserID, err)
		return err
	}
	return nil
}

// Drop forgets a user's in-memory session, including the driver selection buffer
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	delete(r.sessions, userID)
	r.mu.Unlock()
}

// withDefaults fills fields missing from older stored documents
func withDefaults(s Saved) Saved {
	def := DefaultSaved()
	if s.UI.Theme == "" {
		s.UI.Theme = def.UI.Theme
	}
	if !s.UI.ViewMode.Valid() {
		s.UI.ViewMode = def.UI.ViewMode
	}
	if s.UI.Filters == (UIFilters{}) {
		s.UI.Filters = def.UI.Filters
	}
	if !s.Requests.ViewMode.Valid() {
		s.Requests.ViewMode = def.Requests.ViewMode
	}
	if s.Requests.Filters == (RequestFilters{}) {
		s.Requests.Filters = def.Requests.Filters
	}
	return s
}
