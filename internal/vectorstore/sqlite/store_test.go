package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

func setupTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	store, err := NewStore(dir, "documents")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_UpsertSearchCount(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, t.TempDir())
	require.NoError(t, s.Init(ctx, 3))

	records := []domain.ChunkRecord{
		{ID: "a", Vector: []float32{1, 0, 0}, Text: "Paris is the capital of France.", Metadata: map[string]any{domain.MetaSource: "france.md", domain.MetaPage: 0}},
		{ID: "b", Vector: []float32{0, 1, 0}, Text: "Berlin", Metadata: map[string]any{domain.MetaSource: "germany.md"}},
	}
	require.NoError(t, s.Upsert(ctx, records))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := s.Search(ctx, []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Record.ID)
	assert.Equal(t, "Paris is the capital of France.", results[0].Record.Text)
	assert.Equal(t, []float32{1, 0, 0}, results[0].Record.Vector)
	assert.Equal(t, "france.md", vectorstore.MetaString(results[0].Record.Metadata, domain.MetaSource))
	page, ok := vectorstore.MetaInt(results[0].Record.Metadata, domain.MetaPage)
	assert.True(t, ok)
	assert.Equal(t, 0, page)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewStore(dir, "documents")
	require.NoError(t, err)
	require.NoError(t, first.Init(ctx, 2))
	require.NoError(t, first.Upsert(ctx, []domain.ChunkRecord{{ID: "a", Vector: []float32{1, 0}, Text: "x"}}))
	require.NoError(t, first.Close())

	second := setupTestStore(t, dir)
	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// dimension survives the reopen
	assert.ErrorIs(t, second.Init(ctx, 4), domain.ErrDimensionMismatch)
	results, err := second.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStore_UpsertReplacesSameID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, t.TempDir())
	require.NoError(t, s.Init(ctx, 2))

	require.NoError(t, s.Upsert(ctx, []domain.ChunkRecord{{ID: "a", Vector: []float32{1, 0}, Text: "old"}}))
	require.NoError(t, s.Upsert(ctx, []domain.ChunkRecord{{ID: "a", Vector: []float32{1, 0}, Text: "new"}}))

	n, _ := s.Count(ctx)
	assert.Equal(t, 1, n)
	results, _ := s.Search(ctx, []float32{1, 0}, 1)
	assert.Equal(t, "new", results[0].Record.Text)
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	docs := setupTestStore(t, dir)
	other, err := NewStore(dir, "other")
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })

	require.NoError(t, docs.Init(ctx, 2))
	require.NoError(t, other.Init(ctx, 3))
	require.NoError(t, docs.Upsert(ctx, []domain.ChunkRecord{{ID: "a", Vector: []float32{1, 0}}}))

	n, _ := other.Count(ctx)
	assert.Equal(t, 0, n)
}

func TestStore_EmptyAndErrors(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, t.TempDir())

	results, err := s.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Error(t, s.Upsert(ctx, []domain.ChunkRecord{{ID: "a", Vector: []float32{1}}}))
	assert.Error(t, s.Init(ctx, 0))

	require.NoError(t, s.Init(ctx, 2))
	assert.ErrorIs(t, s.Upsert(ctx, []domain.ChunkRecord{{ID: "a", Vector: []float32{1}}}), domain.ErrDimensionMismatch)
	_, err = s.Search(ctx, []float32{1, 2, 3}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, t.TempDir())
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.ChunkRecord{{ID: "a", Vector: []float32{1, 0}}}))

	require.NoError(t, s.Clear(ctx))

	n, _ := s.Count(ctx)
	assert.Equal(t, 0, n)
	assert.NoError(t, s.Init(ctx, 8))
}

func TestFloat32Encoding(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
}
