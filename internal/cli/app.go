package cli

import (
	"errors"
	"fmt"
	"time"

	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding/hashing"
	embollama "docrag/internal/embedding/ollama"
	embopenai "docrag/internal/embedding/openai"
	llmollama "docrag/internal/llm/ollama"
	llmopenai "docrag/internal/llm/openai"
	"docrag/internal/loader"
	"docrag/internal/marker"
	"docrag/internal/service"
	"docrag/internal/vectorstore/memory"
	"docrag/internal/vectorstore/qdrant"
	"docrag/internal/vectorstore/sqlite"
)

// App holds the components assembled from one configuration.
type App struct {
	Config   *config.AppConfig
	Loaders  *loader.Registry
	Embedder domain.Embedder
	Store    domain.VectorStore
	Marker   domain.Marker
	Indexer  *service.Indexer
	Pipeline *service.Pipeline
}

// newApp wires every component. The language model is only built when withLLM is set,
// so ingestion works without chat credentials.
func newApp(cfg *config.AppConfig, withLLM bool) (*App, error) {
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "recursive", "":
		ch = chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap(), cfg.Chunker.Separators)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	st, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	mk, err := marker.New(cfg.Ingest.Marker, cfg.PersistDir, cfg.Ingest.MarkerPrefix)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	loaders := loader.Default()
	opts := []service.IndexerOption{service.WithDataDirs(cfg.PDFDir(), cfg.MarkdownDir())}
	if cfg.Ingest.IDs == "content" {
		opts = append(opts, service.WithContentIDs())
	}

	app := &App{
		Config:   cfg,
		Loaders:  loaders,
		Embedder: emb,
		Store:    st,
		Marker:   mk,
		Indexer:  service.NewIndexer(loaders, ch, emb, st, mk, opts...),
	}

	if withLLM {
		llm, err := buildLLM(cfg)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		retriever := service.NewRetriever(emb, st, cfg.Retriever.MinScore)
		app.Pipeline = service.NewPipeline(retriever, service.NewComposer(llm), cfg.Retriever.TopK)
	}
	return app, nil
}

// Close releases the store and marker.
func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.Marker.Close())
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "ollama", "":
		c := cfg.Embedder.Ollama
		if c == nil {
			c = &config.OllamaEmbedderConfig{}
		}
		return embollama.NewClient(embollama.Config{
			BaseURL:           c.BaseURL,
			Model:             c.Model,
			Timeout:           time.Duration(c.TimeoutSecs) * time.Second,
			RequestsPerSecond: c.RequestsPerSecond,
		}), nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, errors.New("openai embedder config missing")
		}
		c := cfg.Embedder.OpenAI
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:           c.BaseURL,
			APIKeyEnv:         c.APIKeyEnv,
			Model:             c.Model,
			Timeout:           time.Duration(c.TimeoutSecs) * time.Second,
			BatchSize:         c.BatchSize,
			MaxRetries:        c.MaxRetries,
			RequestsPerSecond: c.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	case "hashing":
		dim := 0
		if cfg.Embedder.Hashing != nil {
			dim = cfg.Embedder.Hashing.Dimension
		}
		return hashing.NewEmbedder(dim), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func buildLLM(cfg *config.AppConfig) (domain.LLM, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second
	switch cfg.LLM.Type {
	case "ollama", "":
		return llmollama.NewClient(llmollama.Config{
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     timeout,
		}), nil
	case "openai":
		client, err := llmopenai.NewClient(llmopenai.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKeyEnv:   cfg.LLM.APIKeyEnv,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("openai llm init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.LLM.Type)
	}
}

func buildStore(cfg *config.AppConfig) (domain.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "sqlite", "":
		st, err := sqlite.NewStore(cfg.PersistDir, cfg.Collection)
		if err != nil {
			return nil, fmt.Errorf("sqlite store init failed: %w", err)
		}
		return st, nil
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		if q == nil {
			return nil, errors.New("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: cfg.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}
