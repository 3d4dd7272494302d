// Package vectorstore holds scoring and metadata helpers shared by the stores and their readers.
package vectorstore

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"docrag/internal/domain"
)

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero vector.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK scores every record against query and returns the best topK, highest first.
func TopK(records []domain.ChunkRecord, query []float32, topK int) []domain.SearchResult {
	if topK <= 0 || len(records) == 0 {
		return nil
	}
	scores := make([]float64, len(records))
	for i := range records {
		scores[i] = Cosine(records[i].Vector, query)
	}
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		j := idxs[i]
		results = append(results, domain.SearchResult{Record: records[j], Score: scores[j]})
	}
	return results
}

// CloneMetadata copies m so stored records do not alias caller maps.
func CloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	quicksort(idxs, vals, 0, len(idxs)-1)
	return idxs
}

func quicksort(idxs []int, vals []float64, lo, hi int) {
	if lo >= hi {
		return
	}
	i, j := lo, hi
	pivot := vals[idxs[(lo+hi)/2]]
	for i <= j {
		for vals[idxs[i]] > pivot { // desc order
			i++
		}
		for vals[idxs[j]] < pivot {
			j--
		}
		if i <= j {
			idxs[i], idxs[j] = idxs[j], idxs[i]
			i++
			j--
		}
	}
	if lo < j {
		quicksort(idxs, vals, lo, j)
	}
	if i < hi {
		quicksort(idxs, vals, i, hi)
	}
}

// MetaInt reads an integer metadata value regardless of how the store decoded it.
func MetaInt(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	}
	return 0, false
}

// MetaString reads a string metadata value.
func MetaString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// SourceLabel names the record's source file, with a 1-based page for PDFs.
func SourceLabel(m map[string]any) string {
	src := MetaString(m, domain.MetaSource)
	if !strings.EqualFold(filepath.Ext(src), ".pdf") {
		return src
	}
	if page, ok := MetaInt(m, domain.MetaPage); ok {
		return fmt.Sprintf("%s p.%d", src, page+1)
	}
	return src
}
