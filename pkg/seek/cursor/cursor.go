// Package cursor persists per-volume change journal positions in Badger so
// journal sessions can resume where the last published snapshot left off.
package cursor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/seek/pkg/seek/journal"
)

// Key prefixes
const (
	prefixCursor = "c:"
	prefixMeta   = "m:"
)

// ErrNotFound is returned when no cursor is stored for a volume.
var ErrNotFound = errors.New("cursor not found")

// Entry is the stored position of one volume's journal.
type Entry struct {
	Volume    string    `json:"volume"`
	JournalID uint64    `json:"journal_id"`
	FirstUSN  int64     `json:"first_usn"`
	NextUSN   int64     `json:"next_usn"`
	Snapshot  string    `json:"snapshot,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cursor returns the resume point for journal.Reader.Read.
func (e *Entry) Cursor() *journal.Cursor {
	return &journal.Cursor{JournalID: e.JournalID, NextUSN: e.NextUSN}
}

// Store is the cursor storage backed by Badger DB.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening cursor store: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a store that is never written to disk.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening cursor store: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(volume string) []byte {
	return []byte(prefixCursor + strings.ToUpper(volume))
}

// Get returns the cursor stored for volume, or ErrNotFound.
func (s *Store) Get(volume string) (*Entry, error) {
	var entry Entry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(volume))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, volume)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Advance stores entry unless it would move the cursor backwards within the
// same journal. A different journal id always replaces the stored cursor.
// It reports whether the entry was written.
func (s *Store) Advance(entry Entry) (bool, error) {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}

	written := false
	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(entry.Volume))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var prev Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &prev)
			}); err != nil {
				return err
			}
			if prev.JournalID == entry.JournalID && prev.NextUSN > entry.NextUSN {
				return nil
			}
		}
		written = true
		return txn.Set(key(entry.Volume), data)
	})
	return written, err
}

// Delete removes the cursor of volume.
func (s *Store) Delete(volume string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(volume))
	})
}

// List returns every stored cursor ordered by volume.
func (s *Store) List() ([]*Entry, error) {
	var entries []*Entry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixCursor)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return nil // skip corrupt values
				}
				entries = append(entries, &e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}

// Reset removes every stored cursor.
func (s *Store) Reset() error {
	return s.db.DropPrefix([]byte(prefixCursor))
}
