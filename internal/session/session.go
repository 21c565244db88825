// Package session owns the backend session id for one client instance.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/zulandar/proptalk/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Backend is the part of the backend client the manager needs.
type Backend interface {
	CreateSession(ctx context.Context) (string, error)
	DeleteSession(ctx context.Context, id string) error
}

// Token identifies the session a request was issued under. A token stays
// valid until the next Reset; replies carrying an older epoch are stale.
type Token struct {
	Epoch uint64
	ID    string // empty when no session was issued
}

// Manager holds the single active session id. It lives only in memory.
type Manager struct {
	backend Backend
	log     *zap.Logger
	group   singleflight.Group

	mu    sync.RWMutex
	id    string
	epoch uint64
}

// ManagerOpts holds parameters for creating a Manager.
type ManagerOpts struct {
	Backend Backend
	Logger  *zap.Logger
}

// NewManager creates a Manager with no session.
func NewManager(opts ManagerOpts) (*Manager, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("session: backend is required")
	}
	return &Manager{
		backend: opts.Backend,
		log:     logging.OrNop(opts.Logger),
	}, nil
}

// Create asks the backend for a session and makes it current. Concurrent
// callers share one backend call. On failure the previous id is cleared and
// requests go out without one.
func (m *Manager) Create(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do("create", func() (any, error) {
		id, err := m.backend.CreateSession(ctx)
		m.mu.Lock()
		defer m.mu.Unlock()
		if err != nil {
			m.id = ""
			return "", err
		}
		m.id = id
		return id, nil
	})
	if err != nil {
		m.log.Warn("session create failed; continuing without session", zap.Error(err))
		return "", fmt.Errorf("session: create: %w", err)
	}
	id := v.(string)
	m.log.Info("session created", zap.String("session_id", id))
	return id, nil
}

// Reset invalidates every outstanding token, deletes the current session
// server-side (best effort) and creates a new one. The new id is in place
// when Reset returns.
func (m *Manager) Reset(ctx context.Context) (string, error) {
	m.mu.Lock()
	old := m.id
	m.id = ""
	m.epoch++
	m.mu.Unlock()

	if old != "" {
		if err := m.backend.DeleteSession(ctx, old); err != nil {
			m.log.Warn("session delete failed", zap.String("session_id", old), zap.Error(err))
		}
	}
	return m.Create(ctx)
}

// ID returns the current session id, or "" when none is active.
func (m *Manager) ID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id
}

// Token captures the session a request is about to be issued under.
func (m *Manager) Token() Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Token{Epoch: m.epoch, ID: m.id}
}

// Valid reports whether a reply issued under t may still be applied.
func (m *Manager) Valid(t Token) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return t.Epoch == m.epoch
}
