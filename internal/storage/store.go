// Package storage persists sealed documents keyed by object name. Backends
// live in this package (memory, disk) and in s3storage and gcsstorage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned by Get for unknown keys.
	ErrNotFound = errors.New("object not found")
	// ErrExists is returned by Put when the key is already taken. Sealed
	// documents are immutable once stored.
	ErrExists = errors.New("object already exists")
	// ErrInvalidKey rejects keys that could escape the storage root.
	ErrInvalidKey = errors.New("invalid object key")
)

// Store is implemented by every backend.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ObjectKey is the name under which a sealed document is stored.
func ObjectKey(documentID string) string {
	return documentID + ".pdf"
}

// ValidateKey accepts plain relative names without traversal.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if clean := path.Clean(key); clean != key || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
