// Package store persists gallery collections and the settings document behind
// a pluggable key-value backend.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by a Backend when the key has never been written.
	ErrNotFound = errors.New("store: key not found")
	// ErrReadOnly is returned by a Backend that runs on a read-only filesystem.
	ErrReadOnly = errors.New("store: backend is read-only")
	// ErrConflict is returned when the caller's version no longer matches the stored one.
	ErrConflict = errors.New("store: version conflict")
	// ErrUnreadable is returned by mutations when the current value cannot be read.
	ErrUnreadable = errors.New("store: current value unreadable")
	// ErrInvalid is returned when a value fails validation before it is written.
	ErrInvalid = errors.New("store: invalid value")
)

// Backend stores opaque values by key. Put replaces the whole value.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Name() string
	Close() error
}

// Well-known keys.
const (
	KeyPhotos   = "photos"
	KeyDesigns  = "designs"
	KeySettings = "settings"
)
