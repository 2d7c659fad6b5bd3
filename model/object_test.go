package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-data/lattice/graph"
)

func TestSaveAssignsStableID(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	book := repo.New("Book")
	assert.True(t, book.IsNew())
	assert.Empty(t, book.ID())

	require.NoError(t, book.Save(ctx))
	assert.True(t, book.IsPersisted())
	id := book.ID()
	require.NotEmpty(t, id)

	// The id is invariant under further saves.
	book.SetProperty("title", "changed")
	require.NoError(t, book.Save(ctx))
	require.NoError(t, book.Save(ctx))
	assert.Equal(t, id, book.ID())
}

func TestSaveAssertsContentModelEdge(t *testing.T) {
	repo, st, _ := newTestRepo(t)
	ctx := context.Background()

	book := repo.New("Book")
	require.NoError(t, book.Save(ctx))
	assert.Equal(t, "model:Book", book.Graph().First(graph.HasModel))

	state, err := st.Fetch(ctx, book.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"model:Book"}, state.Edges[graph.HasModel])
}

func TestSaveCustomModelPredicate(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	repo.SetModelPredicate("Book", "custom.model.conformsTo")
	ctx := context.Background()

	book := repo.New("Book")
	require.NoError(t, book.Save(ctx))
	assert.Equal(t, "model:Book", book.Graph().First("custom.model.conformsTo"))
	assert.Empty(t, book.Graph().First(graph.HasModel))
}

func TestSavePersistFailureDoesNotAdvanceState(t *testing.T) {
	repo, st, idx := newTestRepo(t)
	ctx := context.Background()
	st.SaveErr = errors.New("store down")

	book := repo.New("Book")
	err := book.Save(ctx)
	assert.ErrorIs(t, err, ErrPersistFailure)
	assert.True(t, book.IsNew())
	assert.Equal(t, 0, idx.Pending(), "no index write after a failed primary write")

	// A retried save succeeds and keeps the originally minted id.
	minted := book.ID()
	st.SaveErr = nil
	require.NoError(t, book.Save(ctx))
	assert.True(t, book.IsPersisted())
	if minted != "" {
		assert.Equal(t, minted, book.ID())
	}
}

func TestSaveIndexFailureIsWarningLevel(t *testing.T) {
	repo, _, idx := newTestRepo(t)
	ctx := context.Background()
	idx.UpsertErr = errors.New("index down")

	book := repo.New("Book")
	err := book.Save(ctx)
	assert.True(t, IsIndexFailure(err))
	assert.True(t, book.IsPersisted(), "primary write stands despite the index failure")
}

func TestSaveRespectsIndexPolicy(t *testing.T) {
	repo, _, idx := newTestRepo(t)
	repo.SetIndexPolicy("Book", IndexNever{})
	ctx := context.Background()

	book := repo.New("Book")
	require.NoError(t, book.Save(ctx))
	require.NoError(t, book.Save(ctx))
	assert.Equal(t, 0, idx.Pending())

	// Other types keep the default always-index policy.
	library := repo.New("Library")
	require.NoError(t, library.Save(ctx))
	assert.Equal(t, 1, idx.Pending())
}

func TestFetchRoundTrip(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	book := repo.New("Book")
	book.SetProperty("title", "Moby Dick")
	book.SetContent("ocr", []byte("Call me Ishmael."))
	book.Graph().Add("rel.p", "other")
	require.NoError(t, book.Save(ctx))

	fetched, err := repo.Fetch(ctx, book.ID())
	require.NoError(t, err)
	assert.Equal(t, "Book", fetched.Model())
	assert.True(t, fetched.IsPersisted())
	assert.Equal(t, "Moby Dick", fetched.Property("title"))
	assert.Equal(t, []byte("Call me Ishmael."), fetched.Content("ocr"))
	assert.Equal(t, []string{"other"}, fetched.Graph().Targets("rel.p"))
	assert.ElementsMatch(t, []string{"ocr"}, fetched.ContentNames())
}

func TestFetchNotFound(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	_, err := repo.Fetch(context.Background(), "ghost")
	assert.True(t, IsNotFound(err))

	exists, err := repo.Exists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateProperties(t *testing.T) {
	repo, st, _ := newTestRepo(t)
	ctx := context.Background()

	book := repo.New("Book")
	require.NoError(t, book.Save(ctx))

	require.NoError(t, book.UpdateProperties(ctx, map[string]string{"title": "Updated"}))

	state, err := st.Fetch(ctx, book.ID())
	require.NoError(t, err)
	assert.Equal(t, "Updated", state.Properties["title"])
}

func TestOperationsOnDeletedObject(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	book := repo.New("Book")
	require.NoError(t, book.Save(ctx))
	require.NoError(t, book.Delete(ctx))
	assert.True(t, book.IsDeleted())

	assert.ErrorIs(t, book.Save(ctx), ErrObjectDeleted)

	topics := mustAssociation(t, book, "topics")
	_, err := topics.All(ctx)
	assert.ErrorIs(t, err, ErrObjectDeleted)
}

func TestUnknownAssociation(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	book := repo.New("Book")
	_, err := book.Association("shelves")
	assert.ErrorIs(t, err, ErrUnknownAssociation)
}
