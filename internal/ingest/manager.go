package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/metrics"
)

// Manager owns the live ingest sessions and the reference registry they share.
type Manager struct {
	opts    Options
	refs    *RefRegistry
	fetcher Fetcher
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	lastUsed map[string]time.Time
	now      func() time.Time

	janitorMu     sync.Mutex
	janitorCancel context.CancelFunc
	janitorDone   chan struct{}
}

// NewManager creates a session manager.
func NewManager(opts Options, fetcher Fetcher, m *metrics.Metrics, log zerolog.Logger) *Manager {
	return &Manager{
		opts:     opts,
		refs:     NewRefRegistry(),
		fetcher:  fetcher,
		metrics:  m,
		log:      log.With().Str("service", "ingest").Logger(),
		sessions: make(map[string]*Session),
		lastUsed: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Create starts a new session with a fresh id.
func (m *Manager) Create() *Session {
	s := NewSession(uuid.New().String(), m.opts, m.refs, m.fetcher, m.metrics, m.log)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.lastUsed[s.ID()] = m.now()
	count := len(m.sessions)
	m.mu.Unlock()

	m.log.Info().Str("ingest_session", s.ID()).Int("active", count).Msg("Ingest session created")
	return s
}

// Get returns a live session and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	m.lastUsed[id] = m.now()
	return s, nil
}

// Close tears one session down and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	delete(m.lastUsed, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	m.log.Info().Str("ingest_session", id).Msg("Ingest session closed")
	return nil
}

// Shutdown closes every session, releasing all outstanding references.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.lastUsed = make(map[string]time.Time)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	m.log.Info().Int("sessions", len(sessions)).Int("live_refs", m.refs.Len()).Msg("Ingest sessions shut down")
}

// Sweep closes every session unused for longer than the idle TTL. Pages that
// went away without closing their session are torn down here.
func (m *Manager) Sweep() int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.IdleTTL)

	m.mu.Lock()
	var idle []*Session
	for id, used := range m.lastUsed {
		if used.Before(cutoff) {
			idle = append(idle, m.sessions[id])
			delete(m.sessions, id)
			delete(m.lastUsed, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		m.log.Info().Str("ingest_session", s.ID()).Msg("Idle ingest session closed")
	}
	return len(idle)
}

// StartJanitor sweeps idle sessions until ctx is cancelled or StopJanitor is
// called. It blocks; run it in its own goroutine.
func (m *Manager) StartJanitor(ctx context.Context) {
	if m.opts.IdleTTL <= 0 {
		return
	}

	m.janitorMu.Lock()
	if m.janitorCancel != nil {
		m.janitorMu.Unlock()
		return
	}
	ctx, m.janitorCancel = context.WithCancel(ctx)
	done := make(chan struct{})
	m.janitorDone = done
	m.janitorMu.Unlock()
	defer close(done)

	interval := m.opts.IdleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Info().Dur("idle_ttl", m.opts.IdleTTL).Msg("Ingest janitor started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Ingest janitor stopping")
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// StopJanitor stops a running janitor and waits for it to exit.
func (m *Manager) StopJanitor() {
	m.janitorMu.Lock()
	defer m.janitorMu.Unlock()
	if m.janitorCancel == nil {
		return
	}
	m.janitorCancel()
	<-m.janitorDone
	m.janitorCancel = nil
}

// Blob resolves a display reference issued by any session.
func (m *Manager) Blob(ref string) (Blob, bool) {
	return m.refs.Get(ref)
}
