// Package storage persists fetched link sets in BadgerDB so repeated races
// reuse them across processes.
//
// The store is a plain key-value cache keyed by (kind, title), where kind is
// the oracle's cache family ("out", "in", "redir") and the value is the
// JSON-encoded title list. Entries are write-once in practice: the oracle
// only writes a key after a fetch, and always consults the store before the
// network.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrStoreClosed is returned for operations on a closed store.
var ErrStoreClosed = errors.New("link store is closed")

// Options configures a BadgerStore.
type Options struct {
	// Dir is the on-disk location of the store. Ignored when InMemory is
	// set.
	Dir string

	// InMemory keeps everything in RAM; data is lost on close. Used by
	// tests and by runs that only want process-lifetime caching.
	InMemory bool
}

// BadgerStore is a persistent link-set cache. Safe for concurrent use.
type BadgerStore struct {
	db     *badger.DB
	closed atomic.Bool
}

// Open opens (and creates if needed) a BadgerStore.
func Open(opts Options) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	// Link sets are small values read far more often than written; keep the
	// footprint modest.
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(32 << 20).
		WithNumMemtables(1).
		WithNumLevelZeroTables(1).
		WithNumLevelZeroTablesStall(2)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open link store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get returns the cached title list for (kind, title). The second return is
// false on a cache miss.
func (s *BadgerStore) Get(kind, title string) ([]string, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}

	var titles []string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(kind, title))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &titles); err != nil {
				return fmt.Errorf("corrupt link store entry %s:%s: %w", kind, title, err)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return titles, found, nil
}

// Put stores the title list for (kind, title), overwriting any previous
// entry.
func (s *BadgerStore) Put(kind, title string, titles []string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if titles == nil {
		titles = []string{}
	}
	val, err := json.Marshal(titles)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(kind, title), val)
	})
}

// Close flushes and closes the underlying database.
func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func storeKey(kind, title string) []byte {
	return []byte(kind + ":" + title)
}
