package taskqueue

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = pebble.ErrNotFound

// DBQueue is a small wrapper around a Pebble DB instance used by the task queues.
type DBQueue struct {
	DB       *pebble.DB
	DataFile string
}

// Entry is one stored key/value pair.
type Entry struct {
	Key   string
	Value []byte
}

// OpenQueue opens (or creates) a pebble DB at the given dataFile path and
// returns a DBQueue wrapper.
func OpenQueue(dataFile string) (*DBQueue, error) {
	db, err := pebble.Open(dataFile, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &DBQueue{DB: db, DataFile: dataFile}, nil
}

// Add stores a value under the given key.
func (q *DBQueue) Add(key string, value []byte) error {
	return q.DB.Set([]byte(key), value, pebble.Sync)
}

// Get returns a copy of the value for the given key.
func (q *DBQueue) Get(key string) ([]byte, error) {
	value, closer, err := q.DB.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

// Has reports whether key exists.
func (q *DBQueue) Has(key string) (bool, error) {
	_, err := q.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes the key from the DB.
func (q *DBQueue) Delete(key string) error {
	return q.DB.Delete([]byte(key), pebble.Sync)
}

// Entries returns every entry in key order.
func (q *DBQueue) Entries() ([]Entry, error) {
	iter, err := q.DB.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		entries = append(entries, Entry{
			Key:   string(iter.Key()),
			Value: append([]byte(nil), iter.Value()...),
		})
	}
	return entries, iter.Error()
}

// Close closes the underlying DB.
func (q *DBQueue) Close() error {
	return q.DB.Close()
}
