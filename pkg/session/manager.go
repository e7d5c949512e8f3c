// Package session manages client sessions against the grid host. Sessions
// are in-memory with signed tokens; the owning user identity is persisted
// in the registry through the backend manager's store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridhost/internal/logger"
	"gridhost/pkg/backend"
	"gridhost/pkg/metrics"
	"gridhost/pkg/settings"
	"gridhost/pkg/store"
)

var (
	// ErrSessionNotFound is returned for unknown or already-closed sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotStarted is returned when the manager is used before Start.
	ErrNotStarted = errors.New("session manager not started")
)

// Session is an open client session.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	Token        string    `json:"token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Manager owns the open session table and the token service. It
// implements the lifecycle subsystem contract.
type Manager struct {
	backends *backend.Manager

	mu          sync.Mutex
	sessions    map[string]*Session
	tokens      *TokenService
	user        *store.User
	idleTimeout time.Duration
	stopCh      chan struct{}

	stopOnce sync.Once
}

// NewManager creates an unstarted Manager. The backend manager must be
// started first: its registry stores the session user.
func NewManager(backends *backend.Manager) *Manager {
	return &Manager{backends: backends}
}

// Name identifies the subsystem in lifecycle logs.
func (m *Manager) Name() string { return "session" }

// Start ensures the configured local user exists in the registry, builds
// the token service, and launches the idle reaper.
func (m *Manager) Start(ctx context.Context, set *settings.Settings) error {
	reg := m.backends.Registry()
	if reg == nil {
		return fmt.Errorf("session manager requires a started backend manager")
	}

	user, err := reg.EnsureUser(ctx, set.Session.UserID)
	if err != nil {
		return fmt.Errorf("failed to ensure session user: %w", err)
	}

	secret := set.Session.Secret
	if secret == "" {
		secret = generateSecret()
		logger.Debug("No session secret configured, generated an ephemeral one")
	}
	tokens, err := NewTokenService(TokenConfig{Secret: secret})
	if err != nil {
		return fmt.Errorf("failed to build token service: %w", err)
	}

	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.tokens = tokens
	m.user = user
	m.idleTimeout = set.Session.IdleTimeout
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	go m.reapLoop()

	logger.Info("Session manager started",
		logger.KeyUserID, user.Name, "idle_timeout", set.Session.IdleTimeout)
	return nil
}

// Open creates a session for the configured local user and signs a token
// for it.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		return nil, ErrNotStarted
	}

	now := time.Now()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       m.user.ID,
		UserName:     m.user.Name,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	token, expiresAt, err := m.tokens.Generate(sess)
	if err != nil {
		return nil, err
	}
	sess.Token = token
	sess.ExpiresAt = expiresAt

	m.sessions[sess.ID] = sess
	metrics.ActiveSessions.Inc()
	metrics.SessionsOpened.Inc()

	logger.Info("Session opened", logger.KeySessionID, sess.ID, logger.KeyUserID, sess.UserName)
	return sess, nil
}

// Get returns an open session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		return nil, ErrNotStarted
	}
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns open sessions ordered by creation time.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close ends a session by ID.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		return ErrNotStarted
	}
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	metrics.ActiveSessions.Dec()
	logger.Info("Session closed", logger.KeySessionID, id)
	return nil
}

// Authenticate validates a token and returns the open session it names.
// A valid token for a session that has since been closed or reaped fails
// with ErrSessionNotFound.
func (m *Manager) Authenticate(token string) (*Session, error) {
	m.mu.Lock()
	tokens := m.tokens
	m.mu.Unlock()
	if tokens == nil {
		return nil, ErrNotStarted
	}

	claims, err := tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[claims.SessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.LastActiveAt = time.Now()
	return sess, nil
}

// reapLoop closes sessions idle past the configured timeout.
func (m *Manager) reapLoop() {
	interval := m.idleTimeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

func (m *Manager) reap() {
	now := time.Now()

	m.mu.Lock()
	var reaped []string
	for id, sess := range m.sessions {
		if now.Sub(sess.LastActiveAt) > m.idleTimeout {
			delete(m.sessions, id)
			reaped = append(reaped, id)
		}
	}
	m.mu.Unlock()

	for _, id := range reaped {
		metrics.ActiveSessions.Dec()
		metrics.SessionsReaped.Inc()
		logger.Info("Session reaped for inactivity", logger.KeySessionID, id)
	}
}

// Stop closes all sessions and halts the reaper. Safe to call more than
// once and after a failed Start.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		if m.stopCh != nil {
			close(m.stopCh)
		}
		open := len(m.sessions)
		m.sessions = nil
		m.tokens = nil
		m.mu.Unlock()

		metrics.ActiveSessions.Sub(float64(open))
		logger.Info("Session manager stopped", "closed_sessions", open)
	})
	return nil
}
