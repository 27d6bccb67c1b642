package taskqueue

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// BatchQueue holds batches that were accepted but have not finished, so
// they survive a restart. Keys sort in submission order.
var BatchQueue *DBQueue

var seq atomic.Uint64

// OpenBatchQueueDB opens the batch queue at path.
func OpenBatchQueueDB(path string) error {
	q, err := OpenQueue(path)
	if err != nil {
		return err
	}
	BatchQueue = q
	return nil
}

// CloseBatchQueueDB closes the batch queue if it is open.
func CloseBatchQueueDB() error {
	if BatchQueue == nil {
		return nil
	}
	err := BatchQueue.Close()
	BatchQueue = nil
	return err
}

// batchKey is "<unix nanos>-<counter>/<batch id>".
func batchKey(batchID string) string {
	return fmt.Sprintf("%020d-%06d/%s", time.Now().UnixNano(), seq.Add(1)%1000000, batchID)
}

// BatchIDFromKey extracts the batch id from a queue key.
func BatchIDFromKey(key string) string {
	_, id, _ := strings.Cut(key, "/")
	return id
}

// AddToBatchQueue records batchID with an opaque payload and returns its key.
func AddToBatchQueue(batchID string, payload []byte) (string, error) {
	if BatchQueue == nil {
		return "", fmt.Errorf("batch queue not initialized")
	}
	key := batchKey(batchID)
	return key, BatchQueue.Add(key, payload)
}

// PendingBatches lists queued batches oldest first.
func PendingBatches() ([]Entry, error) {
	if BatchQueue == nil {
		return nil, fmt.Errorf("batch queue not initialized")
	}
	return BatchQueue.Entries()
}

// DeleteFromBatchQueue removes a queued batch by key.
func DeleteFromBatchQueue(key string) error {
	if BatchQueue == nil {
		return fmt.Errorf("batch queue not initialized")
	}
	return BatchQueue.Delete(key)
}
