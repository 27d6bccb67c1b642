package success

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble"

	"speedraw/models"
)

// SuccessRecord is kept for every item that produced an animation.
type SuccessRecord struct {
	BatchID   string                 `json:"batch_id"`
	ItemIndex int                    `json:"item_index"`
	ItemName  string                 `json:"item_name"`
	Handle    string                 `json:"handle"`
	Artifact  models.ArtifactRef     `json:"artifact"`
	Config    models.EffectiveConfig `json:"config"`
	Timestamp time.Time              `json:"timestamp"`
}

var db *pebble.DB

// Init initializes the success store
func Init(dbPath string) error {
	var err error
	db, err = pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("failed to open success store: %w", err)
	}
	return nil
}

// Close closes the success store
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// recordKey orders items of a batch by index: "<batch>/<000042>".
func recordKey(batchID string, index int) []byte {
	return []byte(batchID + "/" + fmt.Sprintf("%06d", index))
}

func batchBounds(batchID string) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: []byte(batchID + "/"),
		UpperBound: []byte(batchID + "0"), // '0' sorts right after '/'
	}
}

// StoreSuccess records a successful item outcome.
func StoreSuccess(batchID string, outcome models.ItemOutcome, cfg models.EffectiveConfig) error {
	if db == nil {
		return fmt.Errorf("success store not initialized")
	}
	if !outcome.Success || outcome.Artifact == nil {
		return fmt.Errorf("item %d of batch %s did not succeed", outcome.ItemIndex, batchID)
	}

	record := SuccessRecord{
		BatchID:   batchID,
		ItemIndex: outcome.ItemIndex,
		ItemName:  outcome.ItemName,
		Handle:    outcome.Handle,
		Artifact:  *outcome.Artifact,
		Config:    cfg,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal success record: %w", err)
	}
	return db.Set(recordKey(batchID, outcome.ItemIndex), data, pebble.Sync)
}

// GetSuccess retrieves the record for one item. A missing record is (nil, nil).
func GetSuccess(batchID string, index int) (*SuccessRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("success store not initialized")
	}

	data, closer, err := db.Get(recordKey(batchID, index))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	var record SuccessRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal success record: %w", err)
	}
	return &record, nil
}

// ListBatch returns the success records of one batch ordered by item index.
func ListBatch(batchID string) ([]SuccessRecord, error) {
	return list(batchBounds(batchID))
}

// ListSuccessRecords returns all success records (for admin/debugging)
func ListSuccessRecords() ([]SuccessRecord, error) {
	return list(&pebble.IterOptions{})
}

func list(opts *pebble.IterOptions) ([]SuccessRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("success store not initialized")
	}

	records := []SuccessRecord{}
	iter, err := db.NewIter(opts)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var record SuccessRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue // Skip invalid records
		}
		records = append(records, record)
	}
	return records, iter.Error()
}

// DeleteSuccess removes a success record
func DeleteSuccess(batchID string, index int) error {
	if db == nil {
		return fmt.Errorf("success store not initialized")
	}
	return db.Delete(recordKey(batchID, index), pebble.Sync)
}

// CleanupOldRecords removes success records older than the specified duration
func CleanupOldRecords(maxAge time.Duration) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("success store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}

	var keysToDelete [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var record SuccessRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue
		}
		if record.Timestamp.Before(cutoff) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			keysToDelete = append(keysToDelete, key)
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	batch := db.NewBatch()
	defer batch.Close()
	for _, key := range keysToDelete {
		if err := batch.Delete(key, nil); err != nil {
			return 0, fmt.Errorf("failed to delete old success record: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to delete old success records: %w", err)
	}
	return len(keysToDelete), nil
}

// CheckHealth performs a basic health check on the success database
func CheckHealth() error {
	if db == nil {
		return fmt.Errorf("success database not initialized")
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

