package db

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = leveldb.ErrNotFound

// LevelDB wraps the actual LevelDB connection
type LevelDB struct {
	conn *leveldb.DB
}

// NewLevelDB opens (or creates) a LevelDB instance at the given path
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{conn: db}, nil
}

// NewMemLevelDB opens a LevelDB instance backed by memory, used by tests.
func NewMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{conn: db}, nil
}

// Close safely closes the LevelDB connection
func (l *LevelDB) Close() error {
	return l.conn.Close()
}

// Put inserts or updates a key-value pair
func (l *LevelDB) Put(key, value []byte) error {
	return l.conn.Put(key, value, nil)
}

// Get retrieves the value for a given key
func (l *LevelDB) Get(key []byte) ([]byte, error) {
	return l.conn.Get(key, nil)
}

// Has reports whether key is present.
func (l *LevelDB) Has(key []byte) (bool, error) {
	return l.conn.Has(key, nil)
}

// Write applies a batch atomically.
func (l *LevelDB) Write(batch *leveldb.Batch) error {
	return l.conn.Write(batch, nil)
}

// NewPrefixIterator returns an iterator over keys starting with prefix.
func (l *LevelDB) NewPrefixIterator(prefix []byte) iterator.Iterator {
	return l.conn.NewIterator(util.BytesPrefix(prefix), nil)
}

// Snapshot is a frozen, read-only view of the database.
type Snapshot struct {
	snap *leveldb.Snapshot
}

// Snapshot pins the current state so later writes are invisible to readers.
func (l *LevelDB) Snapshot() (*Snapshot, error) {
	s, err := l.conn.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &Snapshot{snap: s}, nil
}

// NewPrefixIterator returns an iterator over keys in the snapshot starting with prefix.
func (s *Snapshot) NewPrefixIterator(prefix []byte) iterator.Iterator {
	return s.snap.NewIterator(util.BytesPrefix(prefix), nil)
}

// Release frees the snapshot.
func (s *Snapshot) Release() {
	s.snap.Release()
}

// IsNotFound reports whether err is a missing-key error.
func IsNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}
