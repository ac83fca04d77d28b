package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 2 * time.Second
)

// JSONStore implements StateStore using a single JSON file.
// The file lock is held for the lifetime of a writable store, so a second
// process working on the same file fails to open it.
type JSONStore struct {
	path     string
	lock     *FileLock
	readOnly bool
	data     *storeData
	mu       sync.RWMutex
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version   string                   `json:"version"`
	UpdatedAt time.Time                `json:"updated_at"`
	Podcasts  map[string]*PodcastState `json:"podcasts"`
}

// NewJSONStore opens the state file at path, creating its directory when
// needed. An absent file yields an empty store.
func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", ID: path, Err: err}
	}

	s := &JSONStore{
		path: path,
		lock: NewFileLock(path),
	}

	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := s.load(); err != nil {
		s.lock.Unlock()
		return nil, err
	}

	return s, nil
}

// OpenReadOnly loads the store without taking the lock. A missing file yields
// an empty store. Writes fail with ErrReadOnly.
func OpenReadOnly(path string) (*JSONStore, error) {
	s := &JSONStore{path: path, readOnly: true}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the JSON file into memory. Creates empty data if file doesn't exist.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newStoreData()
			if s.readOnly {
				return nil
			}
			// Save immediately to catch permission errors early
			return s.save()
		}
		return &StorageError{Op: "read", Entity: "store", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		return &StorageError{Op: "read", Entity: "store", Err: ErrStorageCorrupt}
	}
	if s.data.Podcasts == nil {
		s.data.Podcasts = make(map[string]*PodcastState)
	}

	return nil
}

// save persists the data to disk atomically.
func (s *JSONStore) save() error {
	if s.readOnly {
		return &StorageError{Op: "write", Entity: "store", Err: ErrReadOnly}
	}
	s.data.UpdatedAt = time.Now()

	err := ReplaceFile(s.path, 0644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s.data)
	})
	if err != nil {
		return &StorageError{Op: "write", Entity: "store", ID: s.path, Err: err}
	}
	return nil
}

// Close releases resources held by the store.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func newStoreData() *storeData {
	return &storeData{
		Version:   schemaVersion,
		UpdatedAt: time.Now(),
		Podcasts:  make(map[string]*PodcastState),
	}
}

// GetState returns a copy of the stored state.
func (s *JSONStore) GetState(ctx context.Context, podcast string) (*PodcastState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.data.Podcasts[podcast]
	if !exists {
		return nil, &StorageError{Op: "read", Entity: "podcast_state", ID: podcast, Err: ErrNotFound}
	}
	cp := *state
	return &cp, nil
}

// PutState stores a copy of state and persists the store.
func (s *JSONStore) PutState(ctx context.Context, state *PodcastState) error {
	if state == nil || state.Podcast == "" {
		return &StorageError{Op: "write", Entity: "podcast_state", Err: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	cp.UpdatedAt = time.Now()
	prev, existed := s.data.Podcasts[cp.Podcast]
	s.data.Podcasts[cp.Podcast] = &cp

	if err := s.save(); err != nil {
		if existed {
			s.data.Podcasts[cp.Podcast] = prev
		} else {
			delete(s.data.Podcasts, cp.Podcast)
		}
		return err
	}
	return nil
}

// ListStates returns copies of all states ordered by slug.
func (s *JSONStore) ListStates(ctx context.Context) ([]*PodcastState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]*PodcastState, 0, len(s.data.Podcasts))
	for _, st := range s.data.Podcasts {
		cp := *st
		states = append(states, &cp)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Podcast < states[j].Podcast })
	return states, nil
}
