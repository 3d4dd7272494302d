// Package sqlite persists chunk records in a single SQLite file and searches them
// by brute-force cosine similarity.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

const FileName = "vectors.db"

var _ domain.VectorStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY,
	dimension INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	text TEXT NOT NULL,
	metadata TEXT,
	embedding BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
`

// Store is a SQLite-backed vector store bound to one collection.
type Store struct {
	db         *sql.DB
	path       string
	collection string

	mu        sync.Mutex
	dimension int
}

// NewStore opens (or creates) dir/vectors.db.
func NewStore(dir, collection string) (*Store, error) {
	if collection == "" {
		collection = "documents"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating persist directory: %w", err)
	}
	dbPath := filepath.Join(dir, FileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, path: dbPath, collection: collection}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Init records the collection dimension on first use and rejects a different one later.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadDimension(ctx)
	if err != nil {
		return err
	}
	if current != 0 {
		if current != dimension {
			return fmt.Errorf("%w: collection %q has %d, got %d", domain.ErrDimensionMismatch, s.collection, current, dimension)
		}
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO collections (name, dimension) VALUES (?, ?)`, s.collection, dimension); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	s.dimension = dimension
	return nil
}

// loadDimension must be called with mu held.
func (s *Store) loadDimension(ctx context.Context) (int, error) {
	if s.dimension != 0 {
		return s.dimension, nil
	}
	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, s.collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection: %w", err)
	}
	s.dimension = dim
	return dim, nil
}

func (s *Store) Upsert(ctx context.Context, records []domain.ChunkRecord) error {
	s.mu.Lock()
	dim, err := s.loadDimension(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if dim == 0 {
		return errors.New("store not initialised")
	}
	for _, r := range records {
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: record %s has %d, want %d", domain.ErrDimensionMismatch, r.ID, len(r.Vector), dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, collection, text, metadata, embedding)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, s.collection, r.Text, string(meta), float32SliceToBytes(r.Vector)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.Lock()
	dim, err := s.loadDimension(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return nil, nil
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: collection has %d, query has %d", domain.ErrDimensionMismatch, dim, len(vector))
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, text, metadata, embedding FROM chunks WHERE collection = ?`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var records []domain.ChunkRecord
	for rows.Next() {
		var (
			r        domain.ChunkRecord
			metaJSON sql.NullString
			blob     []byte
		)
		if err := rows.Scan(&r.ID, &r.Text, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if metaJSON.Valid && metaJSON.String != "" && metaJSON.String != "null" {
			if err := json.Unmarshal([]byte(metaJSON.String), &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling metadata: %w", err)
			}
		}
		r.Vector = bytesToFloat32Slice(blob)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectorstore.TopK(records, vector, topK), nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, s.collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Clear deletes the collection's records and its recorded dimension.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, s.collection); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	s.dimension = 0
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
