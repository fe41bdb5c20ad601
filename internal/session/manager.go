package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Options tunes the sessions a Manager creates.
type Options struct {
	// TTL evicts sessions idle longer than this. Zero disables eviction.
	TTL time.Duration
	// FinalStep is the pipeline step index that triggers finalization.
	FinalStep int
	// SuggestKeywords and TreeKeywords override the stream routing
	// keyword lists when non-empty.
	SuggestKeywords []string
	TreeKeywords    []string
}

// Manager owns the live sessions. Lookups and creation take a lock;
// per-session operations run on the session's own mutex.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	opts Options
	log  *slog.Logger
}

// NewManager creates an empty manager.
func NewManager(log *slog.Logger, opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		log:      log,
	}
}

// Create makes a new session and registers it.
func (m *Manager) Create() *Session {
	s := New(m.log)
	s.finalStep = m.opts.FinalStep
	s.suggestKeywords = m.opts.SuggestKeywords
	s.treeKeywords = m.opts.TreeKeywords

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info("session created", "session_id", s.ID)
	return s
}

// Get returns the session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete closes and removes a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartCleanup evicts idle sessions on a ticker until ctx is done. A no-op
// when the TTL is zero.
func (m *Manager) StartCleanup(ctx context.Context) {
	if m.opts.TTL <= 0 {
		return
	}
	interval := m.opts.TTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.evictIdle()
			}
		}
	}()
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.opts.TTL)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.UpdatedAt().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		m.log.Info("session evicted", "session_id", s.ID)
	}
}
