package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetUser looks up a user by name.
func (s *Store) GetUser(ctx context.Context, name string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&user).Error; err != nil {
		return nil, convertNotFoundError(err, ErrUserNotFound)
	}
	return &user, nil
}

// EnsureUser returns the user with the given name, creating it on first
// reference. The resolved local identity goes through here on every
// startup, so a fresh registry bootstraps itself.
func (s *Store) EnsureUser(ctx context.Context, name string) (*User, error) {
	user, err := s.GetUser(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user = &User{
		ID:   uuid.NewString(),
		Name: name,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// Lost a create race; the row exists now.
		if existing, getErr := s.GetUser(ctx, name); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return user, nil
}

// TouchUser records activity for a user.
func (s *Store) TouchUser(ctx context.Context, name string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&User{}).
		Where("name = ?", name).
		Update("last_seen_at", at)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers returns all known users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := s.db.WithContext(ctx).Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user by name.
func (s *Store) DeleteUser(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("name = ?", name).First(&user).Error; err != nil {
			return convertNotFoundError(err, ErrUserNotFound)
		}
		return tx.Delete(&user).Error
	})
}
