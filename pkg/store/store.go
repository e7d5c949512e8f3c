// Package store persists the host registry: known users and compute
// backend definitions. It is backed by SQLite through GORM so the daemon
// needs no external database.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the registry database handle.
type Store struct {
	db *gorm.DB
}

// New opens (creating if necessary) the registry database at path and
// migrates the schema.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("registry database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL keeps concurrent readers off the single writer's back;
	// busy_timeout waits out short lock contention instead of failing.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate registry schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying GORM handle. Useful for advanced queries and
// tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// convertNotFoundError maps gorm.ErrRecordNotFound to a domain error.
func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}
