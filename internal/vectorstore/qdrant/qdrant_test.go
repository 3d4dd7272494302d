package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

// fakeQdrant implements the handful of endpoints the adapter uses.
type fakeQdrant struct {
	mu        sync.Mutex
	dimension int
	points    []map[string]any
	apiKeys   []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/documents":
		if f.dimension == 0 {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": f.dimension, "distance": "Cosine"}}}}})
	case r.Method == http.MethodPut && r.URL.Path == "/collections/documents":
		var body struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.dimension = body.Vectors.Size
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodDelete && r.URL.Path == "/collections/documents":
		f.dimension = 0
		f.points = nil
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && r.URL.Path == "/collections/documents/points":
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points = append(f.points, body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/collections/documents/points/count":
		if f.dimension == 0 {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": len(f.points)}})
	case r.Method == http.MethodPost && r.URL.Path == "/collections/documents/points/search":
		if len(f.points) == 0 {
			_, _ = w.Write([]byte(`{"result":[]}`))
			return
		}
		p := f.points[0]
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{{
			"id": p["id"], "score": 0.93, "payload": p["payload"], "vector": p["vector"],
		}}})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	fake := &fakeQdrant{}
	server := httptest.NewServer(fake)
	defer server.Close()
	ctx := context.Background()

	s := NewStorage(Config{URL: server.URL, APIKey: "secret", Collection: "documents"})
	require.NoError(t, s.Init(ctx, 2))
	assert.Equal(t, 2, fake.dimension)

	id := "5f1d7c8e-4b0a-4c1e-9a57-3f4c2d1b0a99"
	require.NoError(t, s.Upsert(ctx, []domain.ChunkRecord{{
		ID: id, Vector: []float32{1, 0}, Text: "Paris is the capital of France.",
		Metadata: map[string]any{domain.MetaSource: "france.md", domain.MetaPage: 0},
	}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Record.ID)
	assert.Equal(t, "Paris is the capital of France.", results[0].Record.Text)
	assert.Equal(t, "france.md", results[0].Record.Metadata[domain.MetaSource])
	assert.NotContains(t, results[0].Record.Metadata, payloadText)
	assert.InDelta(t, 0.93, results[0].Score, 1e-9)

	for _, k := range fake.apiKeys {
		assert.Equal(t, "secret", k)
	}
}

func TestStorage_InitDimensionMismatch(t *testing.T) {
	fake := &fakeQdrant{dimension: 768}
	server := httptest.NewServer(fake)
	defer server.Close()

	s := NewStorage(Config{URL: server.URL})
	err := s.Init(context.Background(), 512)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.NoError(t, s.Init(context.Background(), 768))
}

func TestStorage_MissingCollection(t *testing.T) {
	fake := &fakeQdrant{}
	server := httptest.NewServer(fake)
	defer server.Close()
	ctx := context.Background()

	s := NewStorage(Config{URL: server.URL})
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Error(t, s.Upsert(ctx, []domain.ChunkRecord{{ID: "x", Vector: []float32{1}}}))
	require.NoError(t, s.Clear(ctx))
}

func TestStorage_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewStorage(Config{URL: server.URL}).Init(context.Background(), 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
