package domain

import "context"

// Segment is one ordered piece of raw document text, e.g. a PDF page.
type Segment struct {
	Text string
	Page int
}

// Document represents a single source file loaded into the system.
type Document struct {
	Path     string
	Type     string
	Segments []Segment
}

// Chunk is a bounded, contiguous span of a document segment used for retrieval.
type Chunk struct {
	Source string
	Page   int
	Offset int
	Index  int
	Text   string
}

// ChunkRecord is a chunk persisted in the vector store together with its embedding.
type ChunkRecord struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// SearchResult represents a matching record with a relevance score.
type SearchResult struct {
	Record ChunkRecord
	Score  float64
}

// QueryResult is the outcome of answering one question.
// Err is set instead of returning an error so a bad query never stops the caller.
type QueryResult struct {
	Query  string
	Answer string
	Chunks []SearchResult
	Err    error
}

// Prompt is a single system instruction plus one user turn.
type Prompt struct {
	System string
	User   string
}

// Metadata keys stored on every ChunkRecord.
const (
	MetaSource = "source"
	MetaPage   = "page"
	MetaOffset = "offset"
	MetaIndex  = "chunk_index"
)

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Loader reads one file type into a Document.
type Loader interface {
	Load(ctx context.Context, path string) (Document, error)
	Extensions() []string
}

// Embedder converts free text into a numeric vector representation.
// Query and document vectors must come from the same Embedder.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM produces a single completion for a prompt.
type LLM interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// VectorStore persists records of a single collection and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []ChunkRecord) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Marker records which source files have already been ingested.
type Marker interface {
	IsProcessed(ctx context.Context, path, digest string) (bool, error)
	MarkProcessed(ctx context.Context, path, digest string, chunks int) error
	Unmark(ctx context.Context, path string) error
	Close() error
}
