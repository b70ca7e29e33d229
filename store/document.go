package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mutena/fotomutena/metrics"
	"github.com/mutena/fotomutena/utils"
)

// Snapshot is the result of reading a document.
type Snapshot[T any] struct {
	Value T
	ETag  string
	// Fallback is set when Value is the built-in default instead of stored data.
	Fallback bool
	// Err is the read failure hidden behind the fallback. It is nil when the
	// key simply has not been written yet.
	Err error
}

// Document is a JSON value stored under a single key. Reads never fail and
// writes through Update are serialized within the process.
type Document[T any] struct {
	backend  Backend
	key      string
	fallback func() T
	check    func(T) error

	mu sync.Mutex
}

// NewDocument binds key on backend. fallback must return a fresh value on every call.
// check, when non-nil, rejects decoded or submitted values.
func NewDocument[T any](backend Backend, key string, fallback func() T, check func(T) error) *Document[T] {
	return &Document[T]{backend: backend, key: key, fallback: fallback, check: check}
}

// Load returns the stored value or the fallback. Failures are reported on the
// snapshot and logged, never returned.
func (d *Document[T]) Load(ctx context.Context) Snapshot[T] {
	v, err := d.read(ctx)
	if err == nil {
		return Snapshot[T]{Value: v, ETag: ETag(v)}
	}

	fb := d.fallback()
	snap := Snapshot[T]{Value: fb, ETag: ETag(fb), Fallback: true}
	if !errors.Is(err, ErrNotFound) {
		snap.Err = err
		utils.Sugar.Warnw("serving fallback data", "key", d.key, "backend", d.backend.Name(), "error", err)
	}
	return snap
}

// Save overwrites the stored value and returns its new ETag.
func (d *Document[T]) Save(ctx context.Context, v T) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(ctx, v)
}

// Update runs a serialized read-modify-write cycle. When ifMatch is non-empty it
// must equal the current ETag. fn reports whether it changed the value; an
// unchanged value is not written. On ErrReadOnly the returned snapshot holds the
// new value that could not be persisted.
func (d *Document[T]) Update(ctx context.Context, ifMatch string, fn func(current T) (T, bool, error)) (Snapshot[T], error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.read(ctx)
	fallback := false
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		current, fallback = d.fallback(), true
	default:
		return Snapshot[T]{}, fmt.Errorf("%w: %s: %v", ErrUnreadable, d.key, err)
	}

	currentTag := ETag(current)
	if !MatchETag(ifMatch, currentTag) {
		return Snapshot[T]{Value: current, ETag: currentTag, Fallback: fallback}, ErrConflict
	}

	next, changed, err := fn(current)
	if err != nil {
		return Snapshot[T]{Value: current, ETag: currentTag, Fallback: fallback}, err
	}
	if !changed {
		return Snapshot[T]{Value: current, ETag: currentTag, Fallback: fallback}, nil
	}

	tag, err := d.write(ctx, next)
	if err != nil {
		if errors.Is(err, ErrReadOnly) {
			return Snapshot[T]{Value: next, ETag: ETag(next)}, err
		}
		return Snapshot[T]{Value: current, ETag: currentTag, Fallback: fallback}, err
	}
	return Snapshot[T]{Value: next, ETag: tag}, nil
}

func (d *Document[T]) read(ctx context.Context) (T, error) {
	var v T
	data, err := d.backend.Get(ctx, d.key)
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.ObserveStore(d.backend.Name(), "get", "miss")
		return v, err
	case err != nil:
		metrics.ObserveStore(d.backend.Name(), "get", "error")
		return v, err
	}
	metrics.ObserveStore(d.backend.Name(), "get", "ok")

	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", d.key, err)
	}
	if d.check != nil {
		if err := d.check(v); err != nil {
			return v, fmt.Errorf("decode %s: %w", d.key, err)
		}
	}
	return v, nil
}

func (d *Document[T]) write(ctx context.Context, v T) (string, error) {
	if d.check != nil {
		if err := d.check(v); err != nil {
			return "", err
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", d.key, err)
	}
	if err := d.backend.Put(ctx, d.key, data); err != nil {
		metrics.ObserveStore(d.backend.Name(), "put", "error")
		return "", err
	}
	metrics.ObserveStore(d.backend.Name(), "put", "ok")
	return ETag(v), nil
}

// ETag returns a quoted strong validator derived from the canonical JSON encoding.
func ETag(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

// MatchETag reports whether an If-Match header value accepts current.
// An empty header or "*" always matches.
func MatchETag(header, current string) bool {
	header = strings.TrimSpace(header)
	if header == "" || header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == current {
			return true
		}
	}
	return false
}
