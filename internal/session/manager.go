package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"parley/internal/engine"
)

type entry struct {
	meta   *Session
	engine *engine.Engine
}

// Manager owns every live conversation. Each session pairs its
// metadata with a dedicated engine; expired sessions are swept by the
// janitor and handed to the expire hook before removal.
type Manager struct {
	mu                sync.RWMutex
	entries           map[string]*entry
	newEngine         func() *engine.Engine
	inactivityTimeout time.Duration
	onExpire          func(*Session, *engine.Engine)
}

func NewManager(newEngine func() *engine.Engine, inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		entries:           make(map[string]*entry),
		newEngine:         newEngine,
		inactivityTimeout: inactivityTimeout,
	}
}

// SetExpireHook registers a callback invoked (outside the manager
// lock) for each session the janitor ends.
func (m *Manager) SetExpireHook(hook func(*Session, *engine.Engine)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) Create(label string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		Label:          label,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = &entry{meta: s, engine: m.newEngine()}
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(e.meta), nil
}

// Engine returns the live engine for an active session.
func (m *Manager) Engine(sessionID string) (*engine.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[sessionID]
	if !ok || e.meta.Status != StatusActive {
		return nil, ErrNotFound
	}
	return e.engine, nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return ErrNotFound
	}
	e.meta.LastActivityAt = time.Now().UTC()
	return nil
}

// End marks the session ended and returns its metadata and engine so
// the caller can archive the final snapshot.
func (m *Manager) End(sessionID string) (*Session, *engine.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	e.meta.Status = StatusEnded
	e.meta.LastActivityAt = time.Now().UTC()
	return clone(e.meta), e.engine, nil
}

// Active returns the metadata of every active session.
func (m *Manager) Active() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, e := range m.entries {
		if e.meta.Status == StatusActive {
			out = append(out, clone(e.meta))
		}
	}
	return out
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.entries {
		if e.meta.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*entry

	m.mu.Lock()
	for _, e := range m.entries {
		if e.meta.Status != StatusActive {
			continue
		}
		if now.Sub(e.meta.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		e.meta.Status = StatusEnded
		e.meta.LastActivityAt = now
		expired = append(expired, &entry{meta: clone(e.meta), engine: e.engine})
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, e := range expired {
			hook(e.meta, e.engine)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
