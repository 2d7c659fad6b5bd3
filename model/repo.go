// Package model implements the association-resolution and
// persistence-consistency core of Lattice. An Object maps a declaratively
// typed domain entity onto the primary store's edge model; a Repo ties
// objects to their store, search index, and reflection registry. Saves keep
// the two stores from diverging; deletes cascade-repair inbound edges before
// removing the object from either store.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lattice-data/lattice/graph"
	"github.com/lattice-data/lattice/index"
	"github.com/lattice-data/lattice/schema"
	"github.com/lattice-data/lattice/store"
)

// IndexPolicy decides whether a save must refresh the search index. Policies
// are overridable per object type; the default indexes on every save.
type IndexPolicy interface {
	CreateNeedsIndex(o *Object) bool
	UpdateNeedsIndex(o *Object) bool
}

// IndexAlways indexes on every create and update
type IndexAlways struct{}

func (IndexAlways) CreateNeedsIndex(o *Object) bool { return true }
func (IndexAlways) UpdateNeedsIndex(o *Object) bool { return true }

// IndexNever suppresses index refresh entirely for a type
type IndexNever struct{}

func (IndexNever) CreateNeedsIndex(o *Object) bool { return false }
func (IndexNever) UpdateNeedsIndex(o *Object) bool { return false }

// Repo binds the primary store, the search index, and the reflection
// registry, and constructs objects against them. A nil index client disables
// indexing; reverse-lookup associations then resolve empty.
type Repo struct {
	store    store.Client
	index    index.Client
	registry *schema.Registry
	logger   *zap.Logger
	mintID   func() string

	policies        map[string]IndexPolicy
	modelPredicates map[string]string
	mu              sync.RWMutex
}

// NewRepo creates a repo over the given collaborators
func NewRepo(st store.Client, idx index.Client, registry *schema.Registry) *Repo {
	return &Repo{
		store:           st,
		index:           idx,
		registry:        registry,
		logger:          zap.NewNop(),
		mintID:          uuid.NewString,
		policies:        make(map[string]IndexPolicy),
		modelPredicates: make(map[string]string),
	}
}

// SetLogger installs a structured logger; the default is a nop logger
func (r *Repo) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetIDMinter overrides how ids are assigned at first persist
func (r *Repo) SetIDMinter(mint func() string) {
	if mint != nil {
		r.mintID = mint
	}
}

// SetIndexPolicy overrides the index policy for one object type
func (r *Repo) SetIndexPolicy(model string, policy IndexPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[model] = policy
}

// SetModelPredicate overrides the content-model predicate for one object
// type. The default is graph.HasModel for every type.
func (r *Repo) SetModelPredicate(model, predicate string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modelPredicates[model] = predicate
}

// Registry returns the reflection registry the repo consults
func (r *Repo) Registry() *schema.Registry {
	return r.registry
}

func (r *Repo) policyFor(model string) IndexPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.policies[model]; ok {
		return p
	}
	return IndexAlways{}
}

func (r *Repo) modelPredicateFor(model string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.modelPredicates[model]; ok {
		return p
	}
	return graph.HasModel
}

// New constructs an unsaved object of the given type. The object has no id
// until its first save.
func (r *Repo) New(model string) *Object {
	return &Object{
		repo:         r,
		model:        model,
		state:        stateNew,
		graph:        graph.New(),
		properties:   make(map[string]string),
		content:      make(map[string][]byte),
		associations: make(map[string]*Association),
	}
}

// Fetch loads a persisted object from the primary store
func (r *Repo) Fetch(ctx context.Context, id string) (*Object, error) {
	state, err := r.store.Fetch(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("fetch %s: %w", id, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	return r.fromState(state), nil
}

// Exists reports whether an id is present in the primary store
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Fetch(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete fetches an object and runs its cascading delete. A second delete of
// the same id fails with ErrObjectNotFound.
func (r *Repo) Delete(ctx context.Context, id string) error {
	o, err := r.Fetch(ctx, id)
	if err != nil {
		return err
	}
	return o.Delete(ctx)
}

// CommitIndex makes pending index writes visible to reverse queries
func (r *Repo) CommitIndex(ctx context.Context) error {
	if r.index == nil {
		return nil
	}
	if err := r.index.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailure, err)
	}
	return nil
}

// fromState reconstructs a persisted object from its stored state
func (r *Repo) fromState(state *store.State) *Object {
	o := &Object{
		repo:         r,
		id:           state.ID,
		model:        state.Model,
		state:        statePersisted,
		graph:        graph.FromEdges(state.Edges),
		properties:   make(map[string]string, len(state.Properties)),
		content:      make(map[string][]byte, len(state.Content)),
		associations: make(map[string]*Association),
	}
	for k, v := range state.Properties {
		o.properties[k] = v
	}
	for name, data := range state.Content {
		cp := make([]byte, len(data))
		copy(cp, data)
		o.content[name] = cp
	}
	return o
}
