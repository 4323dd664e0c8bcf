// Package kv provides the key-value collaborator used to persist user presets.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kv: key not found")

// Store is safe for concurrent use. Set must be durable when it returns nil.
type Store interface {
	// Get returns ErrNotFound when the key was never written
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
