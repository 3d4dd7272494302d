package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/marker"
)

// contentNamespace seeds content-derived record IDs.
var contentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docrag:chunk"))

// FolderReport summarises one folder scan.
type FolderReport struct {
	Ingested []string
	Skipped  []string
	Failed   []string
	Chunks   int
}

func (r *FolderReport) merge(o FolderReport) {
	r.Ingested = append(r.Ingested, o.Ingested...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.Failed = append(r.Failed, o.Failed...)
	r.Chunks += o.Chunks
}

// Indexer turns source files into stored chunk records.
type Indexer struct {
	loader     domain.Loader
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      domain.VectorStore
	marker     domain.Marker
	contentIDs bool
	dataDirs   []string
}

// IndexerOption customises an Indexer.
type IndexerOption func(*Indexer)

// WithContentIDs derives record IDs from source, offset and text instead of random UUIDs,
// so re-ingesting identical content overwrites instead of duplicating.
func WithContentIDs() IndexerOption {
	return func(ix *Indexer) { ix.contentIDs = true }
}

// WithDataDirs sets the folders scanned by IngestDataRoot, in order.
func WithDataDirs(dirs ...string) IndexerOption {
	return func(ix *Indexer) { ix.dataDirs = dirs }
}

// NewIndexer wires the ingestion flow. A nil marker records nothing.
func NewIndexer(loader domain.Loader, chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, m domain.Marker, opts ...IndexerOption) *Indexer {
	if m == nil {
		m = marker.None{}
	}
	ix := &Indexer{loader: loader, chunker: chunker, embedder: embedder, store: store, marker: m}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Ingest loads, chunks, embeds and stores one file, returning the number of records added.
// It does not consult the marker.
func (ix *Indexer) Ingest(ctx context.Context, path string) (int, error) {
	doc, err := ix.loader.Load(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return 0, err
		}
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	return ix.IngestDocument(ctx, doc)
}

// IngestDocument indexes an already loaded document.
func (ix *Indexer) IngestDocument(ctx context.Context, doc domain.Document) (int, error) {
	chunks, err := ix.chunker.Chunk(doc)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: %w", doc.Path, err)
	}
	if len(chunks) == 0 {
		logger.Warn("no text extracted from %s", doc.Path)
		return 0, nil
	}

	records := make([]domain.ChunkRecord, len(chunks))
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		records[i] = domain.ChunkRecord{
			ID:   ix.recordID(ch),
			Text: ch.Text,
			Metadata: map[string]any{
				domain.MetaSource: ch.Source,
				domain.MetaPage:   ch.Page,
				domain.MetaOffset: ch.Offset,
				domain.MetaIndex:  ch.Index,
			},
		}
		texts[i] = ch.Text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if len(vectors) != len(records) {
		return 0, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(records))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrEmbedding, i, len(v), dim)
		}
		records[i].Vector = v
	}

	if err := ix.store.Init(ctx, dim); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	if err := ix.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	logger.Info("indexed %s: %d chunks", doc.Path, len(records))
	return len(records), nil
}

// IngestFile ingests path unless the marker reports it as processed, then marks it.
// skipped is true when the file was already processed.
func (ix *Indexer) IngestFile(ctx context.Context, path string) (n int, skipped bool, err error) {
	if !ix.supports(path) {
		return 0, false, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, path)
	}
	digest, err := fileDigest(path)
	if err != nil {
		return 0, false, err
	}
	done, err := ix.marker.IsProcessed(ctx, path, digest)
	if err != nil {
		return 0, false, fmt.Errorf("checking marker for %s: %w", path, err)
	}
	if done {
		return 0, true, nil
	}
	n, err = ix.Ingest(ctx, path)
	if err != nil {
		return 0, false, err
	}
	if err := ix.marker.MarkProcessed(ctx, path, digest, n); err != nil {
		return n, false, fmt.Errorf("marking %s: %w", path, err)
	}
	return n, false, nil
}

// IngestFolder ingests every supported, unprocessed file directly inside dir.
// A missing folder is created and yields an empty report. Single-file failures are
// logged and reported without stopping the scan.
func (ix *Indexer) IngestFolder(ctx context.Context, dir string) (FolderReport, error) {
	var report FolderReport
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, fmt.Errorf("creating %s: %w", dir, err)
		}
		logger.Info("created empty folder %s", dir)
		return report, nil
	}
	if err != nil {
		return report, err
	}
	if !info.IsDir() {
		return report, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		n, skipped, err := ix.IngestFile(ctx, path)
		switch {
		case errors.Is(err, domain.ErrUnsupportedFormat):
			logger.Warn("skipping %s: unsupported format", path)
			report.Skipped = append(report.Skipped, path)
		case err != nil:
			logger.Error("failed to ingest %s: %v", path, err)
			report.Failed = append(report.Failed, path)
		case skipped:
			logger.Debug("already ingested %s", path)
			report.Skipped = append(report.Skipped, path)
		default:
			report.Ingested = append(report.Ingested, path)
			report.Chunks += n
		}
	}
	return report, nil
}

// IngestDataRoot scans the configured data folders in order.
func (ix *Indexer) IngestDataRoot(ctx context.Context) (FolderReport, error) {
	var total FolderReport
	for _, dir := range ix.dataDirs {
		r, err := ix.IngestFolder(ctx, dir)
		total.merge(r)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// IngestPaths ingests a mix of files and folders.
func (ix *Indexer) IngestPaths(ctx context.Context, paths []string) (FolderReport, error) {
	var total FolderReport
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			logger.Error("failed to ingest %s: %v", p, err)
			total.Failed = append(total.Failed, p)
			continue
		}
		if info.IsDir() {
			r, err := ix.IngestFolder(ctx, p)
			total.merge(r)
			if err != nil {
				return total, err
			}
			continue
		}
		n, skipped, err := ix.IngestFile(ctx, p)
		switch {
		case errors.Is(err, domain.ErrUnsupportedFormat):
			logger.Warn("skipping %s: unsupported format", p)
			total.Skipped = append(total.Skipped, p)
		case err != nil:
			logger.Error("failed to ingest %s: %v", p, err)
			total.Failed = append(total.Failed, p)
		case skipped:
			total.Skipped = append(total.Skipped, p)
		default:
			total.Ingested = append(total.Ingested, p)
			total.Chunks += n
		}
	}
	return total, nil
}

// Forget clears the marker for path so the next scan ingests it again.
func (ix *Indexer) Forget(ctx context.Context, path string) error {
	return ix.marker.Unmark(ctx, path)
}

// DataDirs returns the folders scanned by IngestDataRoot.
func (ix *Indexer) DataDirs() []string { return ix.dataDirs }

// Supports reports whether path has a registered loader.
func (ix *Indexer) Supports(path string) bool { return ix.supports(path) }

func (ix *Indexer) supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ix.loader.Extensions() {
		if e == ext {
			return true
		}
	}
	return false
}

func (ix *Indexer) recordID(ch domain.Chunk) string {
	if !ix.contentIDs {
		return uuid.NewString()
	}
	key := ch.Source + "\x00" + strconv.Itoa(ch.Page) + "\x00" + strconv.Itoa(ch.Offset) + "\x00" + ch.Text
	return uuid.NewSHA1(contentNamespace, []byte(key)).String()
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
