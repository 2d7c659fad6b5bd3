package index

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestIndex(t *testing.T) *RedisIndex {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	idx := NewRedisIndexWithClient(client, RedisConfig{Addr: mr.Addr(), Prefix: "lattice:"})
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestNewRedisIndex(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	idx, err := NewRedisIndex(RedisConfig{Addr: mr.Addr(), Prefix: "lattice:"})
	require.NoError(t, err)
	defer idx.Close()
}

func TestNewRedisIndexConnectionError(t *testing.T) {
	_, err := NewRedisIndex(RedisConfig{Addr: "localhost:1"})
	assert.Error(t, err)
}

func TestRedisUpsertInvisibleBeforeCommit(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	record := NewRecord("b-1", "Book", map[string][]string{
		"rel.structure.hasConstituent": {"lib-1"},
	})
	require.NoError(t, idx.Upsert(ctx, record))
	assert.Equal(t, 1, idx.Pending())

	records, err := idx.Query(ctx, "Book", "rel.structure.hasConstituent", "lib-1")
	require.NoError(t, err)
	assert.Empty(t, records, "staged writes are invisible until commit")

	require.NoError(t, idx.Commit(ctx))
	assert.Equal(t, 0, idx.Pending())

	records, err = idx.Query(ctx, "Book", "rel.structure.hasConstituent", "lib-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b-1", records[0].ID)
}

func TestRedisQueryFiltersByModel(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, NewRecord("b-1", "Book", map[string][]string{"rel.p": {"lib-1"}})))
	require.NoError(t, idx.Upsert(ctx, NewRecord("n-1", "Newspaper", map[string][]string{"rel.p": {"lib-1"}})))
	require.NoError(t, idx.Commit(ctx))

	records, err := idx.Query(ctx, "Book", "rel.p", "lib-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b-1", records[0].ID)

	// Empty model matches any type.
	records, err = idx.Query(ctx, "", "rel.p", "lib-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRedisQueryInbound(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, NewRecord("b-1", "Book", map[string][]string{"rel.p": {"lib-1"}})))
	require.NoError(t, idx.Upsert(ctx, NewRecord("b-2", "Book", map[string][]string{"rel.q": {"lib-1", "lib-2"}})))
	require.NoError(t, idx.Upsert(ctx, NewRecord("b-3", "Book", map[string][]string{"rel.p": {"lib-2"}})))
	require.NoError(t, idx.Commit(ctx))

	records, err := idx.QueryInbound(ctx, "lib-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b-1", records[0].ID)
	assert.Equal(t, "b-2", records[1].ID)
}

func TestRedisUpsertReplacesStaleMemberships(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, NewRecord("b-1", "Book", map[string][]string{"rel.p": {"lib-1"}})))
	require.NoError(t, idx.Commit(ctx))

	// Re-point the edge; the old reverse membership must disappear.
	require.NoError(t, idx.Upsert(ctx, NewRecord("b-1", "Book", map[string][]string{"rel.p": {"lib-2"}})))
	require.NoError(t, idx.Commit(ctx))

	records, err := idx.Query(ctx, "Book", "rel.p", "lib-1")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = idx.Query(ctx, "Book", "rel.p", "lib-2")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestRedisDelete(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, NewRecord("b-1", "Book", map[string][]string{"rel.p": {"lib-1"}})))
	require.NoError(t, idx.Commit(ctx))

	require.NoError(t, idx.Delete(ctx, "b-1"))

	// Deletion is staged too.
	records, err := idx.Query(ctx, "Book", "rel.p", "lib-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, idx.Commit(ctx))

	records, err = idx.Query(ctx, "Book", "rel.p", "lib-1")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = idx.QueryInbound(ctx, "lib-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRedisDeleteUnindexed(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Delete(ctx, "never-indexed"))
	assert.NoError(t, idx.Commit(ctx))
}

func TestRedisUpsertRequiresID(t *testing.T) {
	idx := setupTestIndex(t)
	assert.Error(t, idx.Upsert(context.Background(), &Record{}))
	assert.Error(t, idx.Upsert(context.Background(), nil))
}
