// internal/store/store.go

// Package store provides the shared-document service two clients use to agree
// on one authoritative room state without a dedicated game server process.
// Documents are opaque JSON values addressed by key; every document carries a
// version that increases by one on each successful write.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no document exists under the key.
	ErrNotFound = errors.New("store: document not found")
	// ErrExists is returned by Create when the key is already taken.
	ErrExists = errors.New("store: document already exists")
	// ErrConflict is returned by Update when the caller's observed version is
	// no longer current, i.e. another writer got there first.
	ErrConflict = errors.New("store: version conflict")
)

// Snapshot is one observed state of a document.
type Snapshot struct {
	Value   []byte
	Version int64
}

// Store is a keyed mutable document cell with optimistic concurrency.
//
// Update is a compare-and-swap on the version: it succeeds only when expect
// matches the stored version, so a stale writer fails with ErrConflict
// instead of silently clobbering a newer state. Subscribe delivers the full
// document on every change, including the subscriber's own writes (echo),
// preceded by an initial snapshot when the document already exists. The
// returned cancel func releases the subscription.
type Store interface {
	Create(ctx context.Context, key string, value []byte) error
	Read(ctx context.Context, key string) (Snapshot, error)
	Update(ctx context.Context, key string, value []byte, expect int64) (int64, error)
	Subscribe(ctx context.Context, key string) (<-chan Snapshot, func(), error)
}
