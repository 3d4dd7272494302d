package marker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"docrag/internal/domain"
)

const LedgerFile = "ledger.db"

var bucketFiles = []byte("ingested_files")

var _ domain.Marker = (*Ledger)(nil)

// Entry is one ingested file as recorded in the ledger.
type Entry struct {
	Path       string    `json:"path"`
	Digest     string    `json:"digest"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Ledger keeps ingestion records in a bbolt file, keyed by absolute path.
// A file counts as processed only while its content digest is unchanged.
type Ledger struct {
	db *bbolt.DB
}

func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFiles)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func key(path string) []byte {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return []byte(path)
}

func (l *Ledger) IsProcessed(_ context.Context, path, digest string) (bool, error) {
	var processed bool
	err := l.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketFiles).Get(key(path))
		if data == nil {
			return nil
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		processed = e.Digest == digest
		return nil
	})
	return processed, err
}

func (l *Ledger) MarkProcessed(_ context.Context, path, digest string, chunks int) error {
	k := key(path)
	data, err := json.Marshal(Entry{Path: string(k), Digest: digest, Chunks: chunks, IngestedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).Put(k, data)
	})
}

// Unmark removes the record for path; unknown paths are ignored.
func (l *Ledger) Unmark(_ context.Context, path string) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).Delete(key(path))
	})
}

// Entries lists every recorded file sorted by path.
func (l *Ledger) Entries(_ context.Context) ([]Entry, error) {
	var out []Entry
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, err
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
