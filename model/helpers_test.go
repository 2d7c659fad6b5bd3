package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lattice-data/lattice/graph"
	"github.com/lattice-data/lattice/index"
	"github.com/lattice-data/lattice/schema"
	"github.com/lattice-data/lattice/store"
)

// testRegistry declares the fixture types shared across the model tests:
// a Library with many Books, Books tagged with Topics both ways, and a Note
// type that holds raw edges without declaring any reflection.
func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r := schema.NewRegistry()

	require.NoError(t, r.Register("Library",
		&schema.Reflection{Name: "books", Macro: schema.MacroHasMany, Property: graph.IsConstituentOf},
	))
	require.NoError(t, r.Register("Book",
		&schema.Reflection{Name: "library", Macro: schema.MacroBelongsTo, Property: graph.IsConstituentOf, ClassName: "Library"},
		&schema.Reflection{Name: "topics", Macro: schema.MacroHasAndBelongsToMany, Property: "rel.subject.hasTopic", InverseOf: "books"},
	))
	require.NoError(t, r.Register("Topic",
		&schema.Reflection{Name: "books", Macro: schema.MacroHasAndBelongsToMany, Property: "rel.subject.coversBook"},
	))
	require.NoError(t, r.Register("Note"))

	return r
}

func newTestRepo(t *testing.T) (*Repo, *store.MemStore, *index.MemIndex) {
	t.Helper()
	st := store.NewMemStore()
	idx := index.NewMemIndex()
	repo := NewRepo(st, idx, testRegistry(t))
	return repo, st, idx
}

func mustAssociation(t *testing.T, o *Object, name string) *Association {
	t.Helper()
	a, err := o.Association(name)
	require.NoError(t, err)
	return a
}
