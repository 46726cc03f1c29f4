package storage

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrKeyNotFound is returned by Get and Delete when the key has no value.
// Backends normalize their native miss errors to this sentinel.
var ErrKeyNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store, so the ledger can
// run against an in-memory map in tests and a persistent backend in
// production.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	Close() error
}

// Batcher is implemented by backends that can apply a group of writes
// atomically: either every entry lands or none does. A nil value marks a
// delete; deleting a missing key inside a batch is a no-op.
type Batcher interface {
	WriteBatch(entries map[string][]byte) error
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	buf := make([]byte, len(value))
	copy(buf, value)
	db.data[string(key)] = buf
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.data[string(key)]; !ok {
		return ErrKeyNotFound
	}
	delete(db.data, string(key))
	return nil
}

// WriteBatch applies every entry under a single lock acquisition.
func (db *MemDB) WriteBatch(entries map[string][]byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for key, value := range entries {
		if value == nil {
			delete(db.data, key)
			continue
		}
		buf := make([]byte, len(value))
		copy(buf, value)
		db.data[key] = buf
	}
	return nil
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() error {
	return nil
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

// Delete removes a key. Deleting a missing key reports ErrKeyNotFound so
// callers can distinguish a no-op from a real removal.
func (ldb *LevelDB) Delete(key []byte) error {
	if _, err := ldb.db.Get(key, nil); errors.Is(err, leveldb.ErrNotFound) {
		return ErrKeyNotFound
	} else if err != nil {
		return err
	}
	return ldb.db.Delete(key, nil)
}

// WriteBatch applies the entries through a LevelDB write batch, which the
// backend commits atomically.
func (ldb *LevelDB) WriteBatch(entries map[string][]byte) error {
	batch := new(leveldb.Batch)
	for key, value := range entries {
		if value == nil {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), value)
	}
	return ldb.db.Write(batch, nil)
}

// Close closes the database connection.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}
