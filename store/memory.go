package store

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Client. It backs unit tests and small embedded
// deployments; semantics match the SQL stores, including ErrNotFound on
// deleting an absent id.
type MemStore struct {
	objects map[string]*State
	mu      sync.RWMutex

	// SaveErr, FetchErr, and DeleteErr, when set, are returned by the
	// corresponding operation before touching state. Tests use these to
	// inject partial failure.
	SaveErr   error
	FetchErr  error
	DeleteErr error
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string]*State),
	}
}

// Save stores a deep copy of the state
func (m *MemStore) Save(ctx context.Context, state *State) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := state.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[state.ID] = copyState(state)
	return nil
}

// Fetch returns a deep copy of the stored state
func (m *MemStore) Fetch(ctx context.Context, id string) (*State, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.objects[id]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", id, ErrNotFound)
	}
	return copyState(state), nil
}

// Delete removes an object; absent ids are an error
func (m *MemStore) Delete(ctx context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(m.objects, id)
	return nil
}

// Len returns the number of stored objects
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func copyState(s *State) *State {
	cp := NewState(s.ID, s.Model)
	for k, v := range s.Properties {
		cp.Properties[k] = v
	}
	for predicate, targets := range s.Edges {
		t := make([]string, len(targets))
		copy(t, targets)
		cp.Edges[predicate] = t
	}
	for name, data := range s.Content {
		d := make([]byte, len(data))
		copy(d, data)
		cp.Content[name] = d
	}
	return cp
}
