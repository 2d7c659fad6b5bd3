// Package index provides the search-index side of Lattice: a derived,
// queryable projection of object state that answers reverse ("who points at
// me") queries the primary store cannot. The index is eventually consistent
// with the primary store. Upsert and Delete stage writes; only Commit makes
// them visible to queries. Readers therefore observe a possibly-stale
// projection, which is the accepted trade-off for reverse-query availability.
package index

import (
	"context"
	"errors"
)

// ErrCommitFailed is returned when staged writes could not be made visible
var ErrCommitFailed = errors.New("index commit failed")

// Record is the denormalized projection of one object: its id, type tag, and
// outbound predicate edges. Records carry no content; the index exists for
// edge lookups only.
type Record struct {
	ID    string              `json:"id"`
	Model string              `json:"model"`
	Edges map[string][]string `json:"edges,omitempty"`
}

// NewRecord creates an index record
func NewRecord(id, model string, edges map[string][]string) *Record {
	cp := make(map[string][]string, len(edges))
	for predicate, targets := range edges {
		t := make([]string, len(targets))
		copy(t, targets)
		cp[predicate] = t
	}
	return &Record{ID: id, Model: model, Edges: cp}
}

// References returns true if any edge on the record points at the target
func (r *Record) References(target string) bool {
	for _, targets := range r.Edges {
		for _, t := range targets {
			if t == target {
				return true
			}
		}
	}
	return false
}

// Client is the search index contract. Upsert and Delete stage writes;
// Commit makes all staged writes durably visible. Query returns committed
// records of the given model holding an edge (property, target); an empty
// model matches any type. QueryInbound returns every committed record with
// at least one edge pointing at the target, regardless of predicate.
type Client interface {
	Upsert(ctx context.Context, record *Record) error
	Delete(ctx context.Context, id string) error
	Commit(ctx context.Context) error
	Query(ctx context.Context, model, property, target string) ([]*Record, error)
	QueryInbound(ctx context.Context, target string) ([]*Record, error)
}
