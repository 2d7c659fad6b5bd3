// Package store defines the contract Lattice requires from the primary
// object store, plus SQL-backed and in-memory implementations. The primary
// store is authoritative: it holds each object's content, properties, and
// outbound edges, and must round-trip the edge set verbatim. Reverse
// (inbound) queries are not part of this contract; those belong to the
// search index.
package store

import (
	"context"
	"errors"
)

// Common store error types
var (
	// ErrNotFound is returned when an object id is absent from the store
	ErrNotFound = errors.New("object not found")

	// ErrInvalidState is returned when a state is missing its id or model
	ErrInvalidState = errors.New("object state missing id or model")
)

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// State is the persisted form of one object: identity, type tag, flat
// properties, outbound predicate edges, and named content streams. Content
// bytes are opaque to the store.
type State struct {
	ID         string
	Model      string
	Properties map[string]string
	Edges      map[string][]string
	Content    map[string][]byte
}

// NewState creates an empty state for an object
func NewState(id, model string) *State {
	return &State{
		ID:         id,
		Model:      model,
		Properties: make(map[string]string),
		Edges:      make(map[string][]string),
		Content:    make(map[string][]byte),
	}
}

// Validate checks the state carries the fields every save requires
func (s *State) Validate() error {
	if s.ID == "" || s.Model == "" {
		return ErrInvalidState
	}
	return nil
}

// Client is the primary object store contract. Save must persist the full
// state (create or replace); Fetch must return edges exactly as saved;
// Delete of an absent id must return ErrNotFound, never succeed silently.
type Client interface {
	Save(ctx context.Context, state *State) error
	Fetch(ctx context.Context, id string) (*State, error)
	Delete(ctx context.Context, id string) error
}
