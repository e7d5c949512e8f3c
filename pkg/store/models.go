package store

import (
	"errors"
	"time"
)

// Domain errors returned by registry operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrBackendNotFound = errors.New("backend not found")
)

// User is a local identity that sessions are opened under.
type User struct {
	ID         string    `gorm:"primaryKey"`
	Name       string    `gorm:"uniqueIndex;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	LastSeenAt time.Time
}

// BackendRecord is a registered compute backend definition.
type BackendRecord struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;not null"`
	Kind      string    `gorm:"not null"`
	Enabled   bool      `gorm:"default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// AllModels returns every model for schema migration.
func AllModels() []any {
	return []any{
		&User{},
		&BackendRecord{},
	}
}
