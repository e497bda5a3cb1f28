// Package memory provides an in-memory option store for tests and previews.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/goliatone/go-optionbuilder/pkg/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu      sync.RWMutex
	options map[string]any
	meta    map[string]map[string]any // entity id -> key -> value
}

// New creates an empty store.
func New() *Store {
	return &Store{
		options: make(map[string]any),
		meta:    make(map[string]map[string]any),
	}
}

// Options returns a copy of the stored site options.
func (s *Store) Options(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.options), nil
}

// SetOption stores a site option.
func (s *Store) SetOption(ctx context.Context, key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[key] = v
	return nil
}

// SetMeta stores a meta value for an entity.
func (s *Store) SetMeta(ctx context.Context, entityID, key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.meta[entityID]
	if !ok {
		entity = make(map[string]any)
		s.meta[entityID] = entity
	}
	entity[key] = v
	return nil
}

// Get retrieves the unscoped meta value stored under key.
func (s *Store) Get(ctx context.Context, entityID, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.meta[entityID][key]
	return v, ok, nil
}

// GetScoped retrieves the mapping stored under containerKey. Non-map values
// are reported as absent.
func (s *Store) GetScoped(ctx context.Context, entityID, containerKey string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scoped, ok := s.meta[entityID][containerKey].(map[string]any)
	if !ok {
		return nil, nil
	}
	return maps.Clone(scoped), nil
}
