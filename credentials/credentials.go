package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"speedraw/logger"
)

// ErrNotFound is returned when no credentials are stored under a key.
var ErrNotFound = errors.New("credentials not found")

// Entry is a stored publishing target: the backend type and the access
// info the backend needs (bucket, region, keys, host and so on).
type Entry struct {
	Backend    string            `json:"backend"`
	AccessInfo map[string]string `json:"access_info"`
}

var db *pebble.DB

// OpenDB opens the Pebble DB for credentials at the specified path
func OpenDB(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		logger.Errorf("Failed to open Pebble DB: %v", err)
		return err
	}
	return nil
}

// CloseDB closes the DB
func CloseDB() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// GetCredentials loads the entry stored under key.
func GetCredentials(key string) (Entry, error) {
	if db == nil {
		return Entry{}, fmt.Errorf("credentials store not initialized")
	}
	value, closer, err := db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Entry{}, err
	}
	defer closer.Close()

	var entry Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode credentials %s: %w", key, err)
	}
	return entry, nil
}

// StoreCredentials stores the entry under the given key
func StoreCredentials(key string, entry Entry) error {
	if db == nil {
		return fmt.Errorf("credentials store not initialized")
	}
	if key == "" || entry.Backend == "" {
		return fmt.Errorf("credentials need a key and a backend")
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return db.Set([]byte(key), encoded, pebble.Sync)
}

// DeleteCredentials deletes the credentials for the given key
func DeleteCredentials(key string) error {
	if db == nil {
		return fmt.Errorf("credentials store not initialized")
	}
	return db.Delete([]byte(key), pebble.Sync)
}
