// Package backend manages the pool of compute backends the host
// dispatches work to. Backend definitions live in the registry database;
// the manager loads the enabled ones at startup and hands out dispatch
// targets round-robin.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gridhost/internal/logger"
	"gridhost/pkg/metrics"
	"gridhost/pkg/settings"
	"gridhost/pkg/store"
)

var (
	// ErrNoBackends is returned by Dispatch when no enabled backend exists.
	ErrNoBackends = errors.New("no backend available for dispatch")

	// ErrNotStarted is returned when the manager is used before Start.
	ErrNotStarted = errors.New("backend manager not started")
)

// Manager owns the registry database and the in-memory pool of ready
// backends. It implements the lifecycle subsystem contract: Start loads
// the pool, Stop tears it down exactly once.
type Manager struct {
	mu       sync.Mutex
	registry *store.Store
	ready    []*store.BackendRecord
	next     int

	stopOnce sync.Once
}

// NewManager creates an unstarted Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Name identifies the subsystem in lifecycle logs.
func (m *Manager) Name() string { return "backend" }

// Start opens the registry database, seeds the default backend into a
// fresh registry, and loads the enabled backend pool.
func (m *Manager) Start(ctx context.Context, set *settings.Settings) error {
	reg, err := store.New(set.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}

	if _, err := reg.EnsureDefaultBackend(ctx); err != nil {
		reg.Close()
		return fmt.Errorf("failed to seed default backend: %w", err)
	}

	m.mu.Lock()
	m.registry = reg
	m.mu.Unlock()

	if err := m.Refresh(ctx); err != nil {
		reg.Close()
		return err
	}

	logger.Info("Backend manager started", "backends", len(m.Ready()))
	return nil
}

// Refresh reloads the ready pool from the registry.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	reg := m.registry
	m.mu.Unlock()
	if reg == nil {
		return ErrNotStarted
	}

	recs, err := reg.ListBackends(ctx)
	if err != nil {
		return fmt.Errorf("failed to list backends: %w", err)
	}

	ready := make([]*store.BackendRecord, 0, len(recs))
	for _, rec := range recs {
		if rec.Enabled {
			ready = append(ready, rec)
		}
	}

	m.mu.Lock()
	m.ready = ready
	m.next = 0
	m.mu.Unlock()

	metrics.ReadyBackends.Set(float64(len(ready)))
	return nil
}

// Registry returns the registry database. Valid after Start.
func (m *Manager) Registry() *store.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry
}

// Ready returns a snapshot of the backends accepting dispatch.
func (m *Manager) Ready() []*store.BackendRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.BackendRecord, len(m.ready))
	copy(out, m.ready)
	return out
}

// Dispatch picks the next ready backend round-robin.
func (m *Manager) Dispatch(ctx context.Context) (*store.BackendRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registry == nil {
		return nil, ErrNotStarted
	}
	if len(m.ready) == 0 {
		return nil, ErrNoBackends
	}

	rec := m.ready[m.next%len(m.ready)]
	m.next++

	metrics.DispatchedTasks.WithLabelValues(rec.Name).Inc()
	logger.Debug("Dispatched work", logger.KeyBackendID, rec.ID, "backend", rec.Name)
	return rec, nil
}

// Stop closes the registry database and empties the pool. Safe to call
// more than once and after a failed Start.
func (m *Manager) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		m.mu.Lock()
		reg := m.registry
		m.registry = nil
		m.ready = nil
		m.mu.Unlock()

		metrics.ReadyBackends.Set(0)

		if reg != nil {
			err = reg.Close()
		}
		logger.Info("Backend manager stopped")
	})
	return err
}
