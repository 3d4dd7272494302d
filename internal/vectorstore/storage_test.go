package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 3}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestTopK(t *testing.T) {
	records := []domain.ChunkRecord{
		{ID: "a", Vector: []float32{0, 1}},
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "c", Vector: []float32{1, 1}},
		{ID: "d", Vector: []float32{-1, 0}},
	}

	results := TopK(records, []float32{1, 0}, 3)

	require.Len(t, results, 3)
	assert.Equal(t, "b", results[0].Record.ID)
	assert.Equal(t, "c", results[1].Record.ID)
	assert.Equal(t, "a", results[2].Record.ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	assert.Len(t, TopK(records, []float32{1, 0}, 10), 4)
	assert.Nil(t, TopK(records, []float32{1, 0}, 0))
	assert.Nil(t, TopK(nil, []float32{1, 0}, 5))
}

func TestCloneMetadata(t *testing.T) {
	orig := map[string]any{"source": "a.md"}
	cp := CloneMetadata(orig)
	cp["source"] = "b.md"
	assert.Equal(t, "a.md", orig["source"])
	assert.Nil(t, CloneMetadata(nil))
}

func TestMetaAccessors(t *testing.T) {
	m := map[string]any{"page": float64(3), "offset": 12, "source": "a.pdf", "bad": "x"}

	page, ok := MetaInt(m, "page")
	assert.True(t, ok)
	assert.Equal(t, 3, page)

	off, ok := MetaInt(m, "offset")
	assert.True(t, ok)
	assert.Equal(t, 12, off)

	_, ok = MetaInt(m, "bad")
	assert.False(t, ok)
	_, ok = MetaInt(m, "missing")
	assert.False(t, ok)

	assert.Equal(t, "a.pdf", MetaString(m, "source"))
	assert.Equal(t, "", MetaString(m, "page"))
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "report.pdf p.3", SourceLabel(map[string]any{domain.MetaSource: "report.pdf", domain.MetaPage: 2}))
	assert.Equal(t, "SCAN.PDF p.1", SourceLabel(map[string]any{domain.MetaSource: "SCAN.PDF", domain.MetaPage: float64(0)}))
	assert.Equal(t, "report.pdf", SourceLabel(map[string]any{domain.MetaSource: "report.pdf"}))
	assert.Equal(t, "notes.md", SourceLabel(map[string]any{domain.MetaSource: "notes.md", domain.MetaPage: 0}))
	assert.Equal(t, "", SourceLabel(nil))
}
