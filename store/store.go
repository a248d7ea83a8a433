// Package store keeps mappings in memory, in insertion order, and mirrors
// them to a JSON file.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"midiosc/config"
	"midiosc/debug"
	"midiosc/mapping"
)

// DefaultPath returns ~/.config/midiosc/mappings.json
func DefaultPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mappings.json"), nil
}

type file struct {
	Mappings []record `json:"mappings"`
}

// Store is the mapping table. A Store with an empty path never touches
// the disk.
type Store struct {
	mu       sync.RWMutex
	path     string
	mappings []mapping.Mapping
}

// NewMemory returns a store that is not persisted.
func NewMemory() *Store {
	return &Store{}
}

// Open loads the mappings saved at path. A missing file is an empty store.
// Entries that no longer validate are logged and skipped.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %v", mapping.ErrRepository, err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", mapping.ErrRepository, path, err)
	}
	for _, r := range f.Mappings {
		m, err := r.mapping()
		if err != nil {
			debug.Log("store", "skipping mapping %s: %v", r.ID, err)
			continue
		}
		s.mappings = append(s.mappings, m)
	}
	debug.Log("store", "loaded %d mappings from %s", len(s.mappings), path)
	return s, nil
}

func (s *Store) Path() string { return s.path }

// All returns the mappings in insertion order.
func (s *Store) All() ([]mapping.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]mapping.Mapping(nil), s.mappings...), nil
}

func (s *Store) Get(id string) (mapping.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.find(id); i >= 0 {
		return s.mappings[i], nil
	}
	return mapping.Mapping{}, fmt.Errorf("%w: mapping %s", mapping.ErrNotFound, id)
}

func (s *Store) Exists(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(id) >= 0, nil
}

// Save inserts m, or replaces the mapping with the same id in place.
func (s *Store) Save(m mapping.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(ms []mapping.Mapping) ([]mapping.Mapping, error) {
		if i := indexOf(ms, m.ID()); i >= 0 {
			ms[i] = m
			return ms, nil
		}
		return append(ms, m), nil
	})
}

// Update replaces an existing mapping.
func (s *Store) Update(m mapping.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(ms []mapping.Mapping) ([]mapping.Mapping, error) {
		i := indexOf(ms, m.ID())
		if i < 0 {
			return nil, fmt.Errorf("%w: mapping %s", mapping.ErrNotFound, m.ID())
		}
		ms[i] = m
		return ms, nil
	})
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(ms []mapping.Mapping) ([]mapping.Mapping, error) {
		i := indexOf(ms, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: mapping %s", mapping.ErrNotFound, id)
		}
		return append(ms[:i], ms[i+1:]...), nil
	})
}

// Clear removes every mapping.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func([]mapping.Mapping) ([]mapping.Mapping, error) {
		return nil, nil
	})
}

// mutate applies fn to a copy of the table and keeps the result only if it
// was written to disk. Callers hold s.mu.
func (s *Store) mutate(fn func([]mapping.Mapping) ([]mapping.Mapping, error)) error {
	next, err := fn(append([]mapping.Mapping(nil), s.mappings...))
	if err != nil {
		return err
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.mappings = next
	return nil
}

func (s *Store) persist(ms []mapping.Mapping) error {
	if s.path == "" {
		return nil
	}

	f := file{Mappings: make([]record, 0, len(ms))}
	for _, m := range ms {
		f.Mappings = append(f.Mappings, toRecord(m))
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", mapping.ErrRepository, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("%w: %v", mapping.ErrRepository, err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", mapping.ErrRepository, err)
	}
	return nil
}

func (s *Store) find(id string) int {
	return indexOf(s.mappings, id)
}

func indexOf(ms []mapping.Mapping, id string) int {
	for i, m := range ms {
		if m.ID() == id {
			return i
		}
	}
	return -1
}
