package repository

import (
	"context"
	"errors"
	"time"

	"topolab/internal/domain"
)

// ErrNotFound is returned when a named topology does not exist
var ErrNotFound = errors.New("topology not found")

// Summary describes a saved topology without loading its records
type Summary struct {
	Name        string    `json:"name"`
	Digest      string    `json:"digest"`
	Components  int       `json:"components"`
	Connections int       `json:"connections"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Loaded is a saved document plus the rows that could not be decoded
type Loaded struct {
	Document *domain.Document
	Skipped  []domain.SkippedRecord
}

// Store defines the interface for saved topology access
type Store interface {
	// Save writes doc under name. It reports false when the stored copy
	// already has identical content.
	Save(ctx context.Context, name string, doc *domain.Document) (bool, error)
	Load(ctx context.Context, name string) (*Loaded, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, name string) error

	// Close releases resources
	Close() error
}
