// Package database provides the key-value storage backends that hold
// browser sessions and saved items.
package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Store defines the interface for key-value operations.
// SQLite, PostgreSQL and Redis implementations satisfy this interface.
// Writes are last-writer-wins; there is no compare-and-swap.
type Store interface {
	Close() error

	// DatabaseType returns the name of the backend ("SQLite", "PostgreSQL" or "Redis").
	DatabaseType() string

	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
