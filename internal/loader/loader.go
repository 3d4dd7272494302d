// Package loader reads supported file types into domain documents.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"docrag/internal/domain"
)

// Registry dispatches to a loader by file extension.
type Registry struct {
	loaders map[string]domain.Loader
}

// NewRegistry registers every extension reported by the given loaders.
// Later loaders win on conflicts.
func NewRegistry(loaders ...domain.Loader) *Registry {
	r := &Registry{loaders: make(map[string]domain.Loader)}
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			r.loaders[strings.ToLower(ext)] = l
		}
	}
	return r
}

// Default returns a registry for PDF and Markdown files.
func Default() *Registry {
	return NewRegistry(NewPDFLoader(), NewMarkdownLoader())
}

// Supports reports whether a loader is registered for the path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads path with the loader registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) (domain.Document, error) {
	l, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, path)
	}
	return l.Load(ctx, path)
}

// Extensions returns all registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
