package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemIndexCommitSemantics(t *testing.T) {
	m := NewMemIndex()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, NewRecord("b-1", "Book", map[string][]string{"rel.p": {"lib-1"}})))
	assert.Equal(t, 1, m.Pending())

	records, err := m.Query(ctx, "Book", "rel.p", "lib-1")
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, m.Commit(ctx))
	assert.Equal(t, 0, m.Pending())

	records, err = m.Query(ctx, "Book", "rel.p", "lib-1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, m.Delete(ctx, "b-1"))
	require.NoError(t, m.Commit(ctx))

	records, err = m.QueryInbound(ctx, "lib-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemIndexOrdering(t *testing.T) {
	m := NewMemIndex()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, NewRecord("b-2", "Book", map[string][]string{"rel.p": {"x"}})))
	require.NoError(t, m.Upsert(ctx, NewRecord("b-1", "Book", map[string][]string{"rel.p": {"x"}})))
	require.NoError(t, m.Commit(ctx))

	records, err := m.Query(ctx, "", "rel.p", "x")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b-1", records[0].ID)
	assert.Equal(t, "b-2", records[1].ID)
}

func TestMemIndexInjectedErrors(t *testing.T) {
	m := NewMemIndex()
	ctx := context.Background()
	boom := errors.New("boom")

	m.UpsertErr = boom
	assert.ErrorIs(t, m.Upsert(ctx, NewRecord("b-1", "Book", nil)), boom)

	m.UpsertErr = nil
	m.CommitErr = boom
	require.NoError(t, m.Upsert(ctx, NewRecord("b-1", "Book", nil)))
	assert.ErrorIs(t, m.Commit(ctx), boom)
	assert.Equal(t, 1, m.Pending(), "failed commit keeps operations staged")
}

func TestRecordReferences(t *testing.T) {
	r := NewRecord("b-1", "Book", map[string][]string{
		"rel.p": {"a", "b"},
		"rel.q": {"c"},
	})
	assert.True(t, r.References("c"))
	assert.False(t, r.References("d"))
}
