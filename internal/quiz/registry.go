package quiz

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pavelanni/picquiz/internal/loader"
)

// DefaultMaxSessions bounds the number of sessions a Registry keeps.
const DefaultMaxSessions = 1000

// Registry keeps the live sessions of the web presenter, keyed by ID.
type Registry struct {
	source loader.Source
	cfg    Config
	limit  int

	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // creation order, oldest first
}

// NewRegistry creates a registry whose sessions load from src. A limit of 0
// or less means DefaultMaxSessions.
func NewRegistry(src loader.Source, cfg Config, limit int) *Registry {
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	return &Registry{
		source:   src,
		cfg:      cfg,
		limit:    limit,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Create registers and starts a new session, evicting the oldest session
// when the registry is full.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.source, r.cfg)

	r.mu.Lock()
	for len(r.order) >= r.limit {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.sessions, oldest)
		slog.Debug("evicted quiz session", "session", oldest)
	}
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)
	r.mu.Unlock()

	s.Start()
	return s
}

// Remove drops a session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
