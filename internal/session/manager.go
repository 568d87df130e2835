package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTTL is how long an untouched session stays in memory.
const DefaultIdleTTL = 2 * time.Hour

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Session Options
	IdleTTL time.Duration // defaults to DefaultIdleTTL
}

// Manager owns every live Session, keyed by the ID in the browser cookie.
// It is constructed once at startup and injected where sessions are needed.
type Manager struct {
	opts    Options
	idleTTL time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty Manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = slog.Default()
	}
	return &Manager{
		opts:     opts.Session,
		idleTTL:  opts.IdleTTL,
		logger:   opts.Session.Logger,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a random ID.
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.opts)
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

// Get returns the live session for id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// GetOrCreate returns the session for id, recreating it under the same ID when the
// cookie outlived the in-memory session (restart, eviction) so Initialize can read its
// mirrored token. Malformed IDs get a fresh session. created reports a new Session.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if _, err := uuid.Parse(id); err != nil {
		return m.Create(), true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.touch()
		return s, false
	}
	s = newSession(id, m.opts)
	m.sessions[id] = s
	return s, true
}

// Rotate moves the identity held by old to a session with a fresh ID and discards old,
// including its mirrored token. Call it once login completes: an ID the browser carried
// before login must never name an authenticated session.
func (m *Manager) Rotate(ctx context.Context, old *Session) *Session {
	next := newSession(uuid.NewString(), m.opts)

	m.mu.Lock()
	delete(m.sessions, old.id)
	m.sessions[next.id] = next
	m.mu.Unlock()

	old.close()
	next.inherit(ctx, old)
	if err := old.store.Delete(ctx, old.id); err != nil {
		m.logger.WarnContext(ctx, "token mirror delete failed", "session_id", old.id, "error", err)
	}
	m.logger.DebugContext(ctx, "session id rotated", "from", old.id, "to", next.id)
	return next
}

// Delete forgets a session and stops its timers.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.close()
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the idle TTL and returns how many were evicted.
func (m *Manager) Sweep(now time.Time) int {
	var evicted []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince(now) > m.idleTTL {
			delete(m.sessions, id)
			evicted = append(evicted, s)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.close()
	}
	return len(evicted)
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(m.now()); n > 0 {
				m.logger.DebugContext(ctx, "evicted idle sessions", "count", n)
			}
		}
	}
}

func (m *Manager) now() time.Time {
	if m.opts.Now != nil {
		return m.opts.Now()
	}
	return time.Now()
}
