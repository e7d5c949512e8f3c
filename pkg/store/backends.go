package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// DefaultBackendName is the backend seeded into a fresh registry.
const DefaultBackendName = "local"

// GetBackend looks up a backend definition by name.
func (s *Store) GetBackend(ctx context.Context, name string) (*BackendRecord, error) {
	var rec BackendRecord
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error; err != nil {
		return nil, convertNotFoundError(err, ErrBackendNotFound)
	}
	return &rec, nil
}

// ListBackends returns all backend definitions ordered by name.
func (s *Store) ListBackends(ctx context.Context) ([]*BackendRecord, error) {
	var recs []*BackendRecord
	if err := s.db.WithContext(ctx).Order("name").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// EnsureDefaultBackend seeds the local backend into an empty registry.
// An already-populated registry is left untouched.
func (s *Store) EnsureDefaultBackend(ctx context.Context) (*BackendRecord, error) {
	rec, err := s.GetBackend(ctx, DefaultBackendName)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrBackendNotFound) {
		return nil, err
	}

	rec = &BackendRecord{
		ID:      uuid.NewString(),
		Name:    DefaultBackendName,
		Kind:    "local",
		Enabled: true,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if existing, getErr := s.GetBackend(ctx, DefaultBackendName); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return rec, nil
}

// CreateBackend registers a new backend definition.
func (s *Store) CreateBackend(ctx context.Context, name, kind string) (*BackendRecord, error) {
	rec := &BackendRecord{
		ID:      uuid.NewString(),
		Name:    name,
		Kind:    kind,
		Enabled: true,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// SetBackendEnabled flips a backend's enabled flag.
func (s *Store) SetBackendEnabled(ctx context.Context, name string, enabled bool) error {
	result := s.db.WithContext(ctx).
		Model(&BackendRecord{}).
		Where("name = ?", name).
		Update("enabled", enabled)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBackendNotFound
	}
	return nil
}
