package marker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docrag/internal/domain"
)

var _ domain.Marker = (*Rename)(nil)

// Rename marks a file by renaming it with a reserved prefix, so the data folder
// itself shows what has been ingested.
type Rename struct {
	prefix string
}

func NewRename(prefix string) *Rename {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Rename{prefix: prefix}
}

func (r *Rename) IsProcessed(_ context.Context, path, _ string) (bool, error) {
	return strings.HasPrefix(filepath.Base(path), r.prefix), nil
}

func (r *Rename) MarkProcessed(_ context.Context, path, _ string, _ int) error {
	base := filepath.Base(path)
	if strings.HasPrefix(base, r.prefix) {
		return nil
	}
	target := filepath.Join(filepath.Dir(path), r.prefix+base)
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("marking %s: %w", path, err)
	}
	return nil
}

// Unmark accepts either the original or the prefixed name and restores the original.
func (r *Rename) Unmark(_ context.Context, path string) error {
	dir, base := filepath.Split(path)
	var marked, plain string
	if strings.HasPrefix(base, r.prefix) {
		marked = path
		plain = filepath.Join(dir, strings.TrimPrefix(base, r.prefix))
	} else {
		marked = filepath.Join(dir, r.prefix+base)
		plain = path
	}
	if _, err := os.Stat(marked); os.IsNotExist(err) {
		return nil
	}
	if err := os.Rename(marked, plain); err != nil {
		return fmt.Errorf("unmarking %s: %w", path, err)
	}
	return nil
}

func (r *Rename) Close() error { return nil }
