package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/embedding/hashing"
	"docrag/internal/loader"
)

// seedStore fills a store with n records whose vectors point in slightly different directions.
func seedStore(t *testing.T, n int) *spyStore {
	t.Helper()
	ctx := context.Background()
	store := newSpyStore()
	require.NoError(t, store.Init(ctx, 2))
	records := make([]domain.ChunkRecord, n)
	for i := range records {
		records[i] = domain.ChunkRecord{ID: fmt.Sprintf("r%02d", i), Vector: []float32{1, float32(i)}, Text: fmt.Sprintf("chunk %d", i)}
	}
	require.NoError(t, store.Upsert(ctx, records))
	return store
}

func TestBuildPrompt(t *testing.T) {
	chunks := []domain.SearchResult{
		{Record: domain.ChunkRecord{Text: "Paris is the capital of France."}},
		{Record: domain.ChunkRecord{Text: "France is in Europe."}},
		{Record: domain.ChunkRecord{Text: "France is in Europe."}},
	}

	p := BuildPrompt("What is the capital of France?", chunks)

	assert.Equal(t, "You are a helpful assistant. Answer the question based only the data provided.", p.System)
	assert.Equal(t,
		"Use the user question What is the capital of France? to answer the question. "+
			"Use only the Paris is the capital of France.\n\nFrance is in Europe.\n\nFrance is in Europe. to answer the question.",
		p.User)
}

func TestBuildPrompt_PercentSignsAreLiteral(t *testing.T) {
	p := BuildPrompt("growth of 5%s?", []domain.SearchResult{{Record: domain.ChunkRecord{Text: "up 10%d"}}})
	assert.Contains(t, p.User, "growth of 5%s?")
	assert.Contains(t, p.User, "up 10%d")
}

func TestRetrieve_NeverMoreThanK(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, 25)
	r := NewRetriever(constEmbedder(1, 0), store, 0)

	for _, k := range []int{1, 3, 25, 40} {
		results, err := r.Retrieve(ctx, "anything", k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), k)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	}

	results, err := r.Retrieve(ctx, "anything", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultK)
	assert.Equal(t, "r00", results[0].Record.ID)
}

func TestRetrieve_EmptyQueryMakesNoCalls(t *testing.T) {
	emb := constEmbedder(1, 0)
	store := seedStore(t, 3)
	r := NewRetriever(emb, store, 0)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := r.Retrieve(context.Background(), q, 5)
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	}
	assert.Equal(t, 0, emb.embedCalls)
	assert.Equal(t, 0, store.searchCalls)
}

func TestRetrieve_MinScore(t *testing.T) {
	store := seedStore(t, 5)
	r := NewRetriever(constEmbedder(1, 0), store, 0.5)

	results, err := r.Retrieve(context.Background(), "q", 5)

	require.NoError(t, err)
	// cos of (1,i) against (1,0) is 1/sqrt(1+i^2): i=0 and i=1 pass 0.5
	assert.Len(t, results, 2)
	for _, res := range results {
		assert.GreaterOrEqual(t, res.Score, 0.5)
	}
}

func TestRetrieve_Failures(t *testing.T) {
	t.Run("embedding", func(t *testing.T) {
		emb := &mockEmbedder{embedFn: func(string) ([]float32, error) { return nil, errProviderDown }}
		_, err := NewRetriever(emb, seedStore(t, 1), 0).Retrieve(context.Background(), "q", 3)
		assert.ErrorIs(t, err, domain.ErrEmbedding)
	})

	t.Run("store", func(t *testing.T) {
		store := seedStore(t, 1)
		store.searchErr = errProviderDown
		_, err := NewRetriever(constEmbedder(1, 0), store, 0).Retrieve(context.Background(), "q", 3)
		assert.ErrorIs(t, err, domain.ErrStore)
	})

	t.Run("wrong embedding space", func(t *testing.T) {
		_, err := NewRetriever(constEmbedder(1, 0, 0), seedStore(t, 1), 0).Retrieve(context.Background(), "q", 3)
		assert.ErrorIs(t, err, domain.ErrStore)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})
}

func TestCompose(t *testing.T) {
	llm := &mockLLM{answer: "Paris"}
	answer, err := NewComposer(llm).Compose(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)
	require.Len(t, llm.prompts, 1)

	_, err = NewComposer(&mockLLM{err: errProviderDown}).Compose(context.Background(), "q", nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, errProviderDown)
}

func TestPipeline_ParisScenario(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "france.md", "Paris is the capital of France.")
	emb := hashing.NewEmbedder(128)
	store := newSpyStore()
	ix := NewIndexer(loader.Default(), chunker.NewRecursiveChunker(0, -1, nil), emb, store, nil)
	_, err := ix.Ingest(ctx, path)
	require.NoError(t, err)

	llm := &mockLLM{echo: true}
	p := NewPipeline(NewRetriever(emb, store, 0), NewComposer(llm), 5)

	res := p.Answer(ctx, "What is the capital of France?")

	require.NoError(t, res.Err)
	assert.Equal(t, "What is the capital of France?", res.Query)
	require.Len(t, res.Chunks, 1)
	assert.Contains(t, res.Chunks[0].Record.Text, "Paris is the capital of France.")
	require.Len(t, llm.prompts, 1)
	assert.Equal(t, llm.prompts[0].User, res.Answer)
	assert.Contains(t, res.Answer, "Paris is the capital of France.")
	assert.Equal(t, filepath.Clean(path), res.Chunks[0].Record.Metadata[domain.MetaSource])
}

func TestPipeline_EmptyQuery(t *testing.T) {
	emb := constEmbedder(1, 0)
	llm := &mockLLM{answer: "x"}
	p := NewPipeline(NewRetriever(emb, seedStore(t, 2), 0), NewComposer(llm), 5)

	res := p.Answer(context.Background(), "  ")

	assert.ErrorIs(t, res.Err, domain.ErrEmptyQuery)
	assert.Empty(t, res.Answer)
	assert.Equal(t, 0, emb.embedCalls)
	assert.Empty(t, llm.prompts)
}

func TestPipeline_PassesTopK(t *testing.T) {
	llm := &mockLLM{answer: "ok"}
	p := NewPipeline(NewRetriever(constEmbedder(1, 0), seedStore(t, 12), 0), NewComposer(llm), 5)

	res := p.Answer(context.Background(), "q")

	require.NoError(t, res.Err)
	assert.Len(t, res.Chunks, 5)
	assert.Equal(t, 4, strings.Count(llm.prompts[0].User, "\n\n"))
}

func TestPipeline_ErrorsAreCarried(t *testing.T) {
	t.Run("retrieval", func(t *testing.T) {
		emb := &mockEmbedder{embedFn: func(string) ([]float32, error) { return nil, errProviderDown }}
		llm := &mockLLM{answer: "x"}
		res := NewPipeline(NewRetriever(emb, seedStore(t, 2), 0), NewComposer(llm), 5).Answer(context.Background(), "q")
		assert.ErrorIs(t, res.Err, domain.ErrEmbedding)
		assert.Empty(t, llm.prompts)
	})

	t.Run("generation", func(t *testing.T) {
		llm := &mockLLM{err: errProviderDown}
		res := NewPipeline(NewRetriever(constEmbedder(1, 0), seedStore(t, 2), 0), NewComposer(llm), 5).Answer(context.Background(), "q")
		assert.ErrorIs(t, res.Err, domain.ErrGeneration)
		assert.Len(t, res.Chunks, 2)
		assert.Empty(t, res.Answer)
	})

	t.Run("panic", func(t *testing.T) {
		emb := &mockEmbedder{embedFn: func(string) ([]float32, error) { panic("boom") }}
		res := NewPipeline(NewRetriever(emb, seedStore(t, 1), 0), NewComposer(&mockLLM{}), 5).Answer(context.Background(), "q")
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "boom")
	})
}
