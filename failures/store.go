package failures

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble"

	"speedraw/models"
)

// FailureRecord represents a failed item or a batch that could not be run.
// Batch level failures use ItemIndex -1.
type FailureRecord struct {
	BatchID   string    `json:"batch_id"`
	ItemIndex int       `json:"item_index"`
	ItemName  string    `json:"item_name,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchLevel marks a failure that is not tied to a single item.
const BatchLevel = -1

var db *pebble.DB

// Init initializes the failure store
func Init(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("failed to open failure store: %w", err)
	}
	return nil
}

// Close closes the failure store
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

func recordKey(batchID string, index int) []byte {
	if index == BatchLevel {
		return []byte(batchID + "/batch")
	}
	return []byte(fmt.Sprintf("%s/%06d", batchID, index))
}

func put(record FailureRecord) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}
	record.Timestamp = time.Now()
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record: %w", err)
	}
	return db.Set(recordKey(record.BatchID, record.ItemIndex), data, pebble.Sync)
}

// StoreItemFailure records a failed item outcome.
func StoreItemFailure(batchID string, outcome models.ItemOutcome) error {
	return put(FailureRecord{
		BatchID:   batchID,
		ItemIndex: outcome.ItemIndex,
		ItemName:  outcome.ItemName,
		Stage:     outcome.Stage,
		Error:     outcome.Error,
	})
}

// StoreFailure records an error that stopped a whole batch.
func StoreFailure(batchID string, err error) error {
	return put(FailureRecord{BatchID: batchID, ItemIndex: BatchLevel, Error: err.Error()})
}

// GetFailure retrieves a failure record. A missing record is (nil, nil).
func GetFailure(batchID string, index int) (*FailureRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	data, closer, err := db.Get(recordKey(batchID, index))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get failure: %w", err)
	}
	defer closer.Close()

	var record FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}
	return &record, nil
}

// DeleteFailure removes a failure record
func DeleteFailure(batchID string, index int) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}
	return db.Delete(recordKey(batchID, index), pebble.Sync)
}

// ListBatch returns the failures of one batch. Item records come first in
// index order, followed by the batch level record if any.
func ListBatch(batchID string) ([]FailureRecord, error) {
	return list(&pebble.IterOptions{
		LowerBound: []byte(batchID + "/"),
		UpperBound: []byte(batchID + "0"),
	})
}

// ListFailures returns all failure records (for admin purposes)
func ListFailures() ([]FailureRecord, error) {
	return list(&pebble.IterOptions{})
}

func list(opts *pebble.IterOptions) ([]FailureRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	failures := []FailureRecord{}
	iter, err := db.NewIter(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue // Skip invalid records
		}
		failures = append(failures, record)
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}
	return failures, nil
}

// CleanupOldRecords removes failure records older than maxAge and returns
// how many were deleted.
func CleanupOldRecords(maxAge time.Duration) (int, error) {
	records, err := ListFailures()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	batch := db.NewBatch()
	defer batch.Close()
	removed := 0
	for _, record := range records {
		if record.Timestamp.Before(cutoff) {
			if err := batch.Delete(recordKey(record.BatchID, record.ItemIndex), nil); err != nil {
				return 0, fmt.Errorf("failed to delete old failure record: %w", err)
			}
			removed++
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to delete old failure records: %w", err)
	}
	return removed, nil
}

// CheckHealth performs a basic health check on the failure database
func CheckHealth() error {
	if db == nil {
		return fmt.Errorf("failure database not initialized")
	}
	_, closer, err := db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}
