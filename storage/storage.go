// Package storage keeps the per-podcast sync state on disk and provides the
// atomic file replacement used for every file this program publishes.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("storage: not found")
	ErrInvalidInput   = errors.New("storage: invalid input")
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout means another process holds the state file.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
	ErrReadOnly    = errors.New("storage: store is read-only")
)

// StorageError records which store operation failed and on what.
type StorageError struct {
	Op     string // open, read, write or lock
	Entity string // store, podcast_state or file
	ID     string // slug or path, may be empty
	Err    error
}

func (e *StorageError) Error() string {
	target := e.Entity
	if e.ID != "" {
		target += " " + e.ID
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, target, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StateStore keeps the last known sync state of every podcast. Implementations
// are safe for concurrent use and hand out copies.
type StateStore interface {
	GetState(ctx context.Context, podcast string) (*PodcastState, error)
	// PutState replaces the stored state of state.Podcast.
	PutState(ctx context.Context, state *PodcastState) error
	// ListStates returns every state ordered by slug.
	ListStates(ctx context.Context) ([]*PodcastState, error)
	Close() error
}
