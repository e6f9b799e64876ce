package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"fleet-admin/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(ctx context.Context, session model.Session) error
	// Get returns ErrSessionNotFound for unknown and expired sessions alike.
	Get(ctx context.Context, id string) (model.Session, error)
	Delete(ctx context.Context, id string) error
}

type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	now      func() time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]model.Session),
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Create(ctx context.Context, session model.Session) error {
	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, id string) (model.Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	if session.Expired(r.now()) {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return model.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (r *MemorySessionRepository) Sweep() int {
	now := r.now()
	removed := 0
	r.mu.Lock()
	for id, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	r.mu.Unlock()
	return removed
}

// RunJanitor sweeps every interval until ctx is cancelled.
func (r *MemorySessionRepository) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
