package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"docrag/internal/domain"
)

// DefaultK is the number of results when the caller does not choose one.
const DefaultK = 10

// Retriever finds the stored chunks most similar to a query.
type Retriever struct {
	embedder domain.Embedder
	store    domain.VectorStore
	minScore float64
}

// NewRetriever uses embedder for queries; it must be the one used at ingestion.
// minScore <= 0 disables score filtering.
func NewRetriever(embedder domain.Embedder, store domain.VectorStore, minScore float64) *Retriever {
	return &Retriever{embedder: embedder, store: store, minScore: minScore}
}

// Retrieve returns at most k results ordered by descending score. k <= 0 means DefaultK.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultK
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	results, err := r.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStore, err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if r.minScore > 0 {
		kept := results[:0]
		for _, res := range results {
			if res.Score >= r.minScore {
				kept = append(kept, res)
			}
		}
		results = kept
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
