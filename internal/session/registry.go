package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the live handle of each user inside one process. It is
// a lookup table only; the store remains the authority on which session
// is active.
type Registry struct {
	mu      sync.RWMutex
	handles map[int]*Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[int]*Handle)}
}

// Get returns the handle for userID, if any.
func (r *Registry) Get(userID int) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[userID]
	return h, ok
}

// Put stores h under its user, replacing any previous handle.
func (r *Registry) Put(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.UserID()] = h
}

// Remove drops the user's handle if it still belongs to sessionID.
func (r *Registry) Remove(userID int, sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[userID]; ok && h.SessionID() == sessionID {
		delete(r.handles, userID)
	}
}

// Snapshot returns all registered handles.
func (r *Registry) Snapshot() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
