package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"speedraw/logger"
	"speedraw/models"
	"speedraw/queue"
	"speedraw/settings"
	taskqueue "speedraw/taskQueue"
	"speedraw/utils"
)

// BatchState represents the current state of a batch
type BatchState int

const (
	BatchStatePending BatchState = iota
	BatchStateProcessing
	BatchStateCompleted
	BatchStateFailed
	BatchStateCancelled
)

func (s BatchState) String() string {
	switch s {
	case BatchStatePending:
		return "pending"
	case BatchStateProcessing:
		return "processing"
	case BatchStateCompleted:
		return "completed"
	case BatchStateFailed:
		return "failed"
	case BatchStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s BatchState) Terminal() bool {
	return s == BatchStateCompleted || s == BatchStateFailed || s == BatchStateCancelled
}

var (
	ErrBatchNotFound  = errors.New("batch not found")
	ErrNotCancellable = errors.New("batch can no longer be cancelled")
	ErrNoItems        = errors.New("batch has no items")
	ErrTooManyItems   = errors.New("batch exceeds the allowed number of items")
)

// ItemStatus is the live view of one item.
type ItemStatus struct {
	Index   int                 `json:"index"`
	Name    string              `json:"name"`
	Stages  []models.StepStatus `json:"stages"`
	Outcome *models.ItemOutcome `json:"outcome,omitempty"`
}

// BatchStatus is the live view of a batch.
type BatchStatus struct {
	BatchID     string       `json:"batch_id"`
	State       BatchState   `json:"-"`
	StateName   string       `json:"state"`
	Completed   int          `json:"completed"`
	Total       int          `json:"total"`
	Items       []ItemStatus `json:"items"`
	Error       string       `json:"error,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

type batchEntry struct {
	status   BatchStatus
	queueKey string
	dir      string
	grant    models.BatchGrant
	result   *models.BatchResult
	cancel   context.CancelFunc
}

// RunnerFactory builds the item runner for a batch, typically binding the
// publishing target named by the batch grant.
type RunnerFactory func(m Manifest) (queue.ItemRunner, error)

// Manager accepts batches, runs them one at a time and tracks their state.
type Manager struct {
	JobsDir   string
	Defaults  queue.DefaultsSource
	RunnerFor RunnerFactory
	// Callback delivers completion notifications; nil uses sendCallback.
	Callback func(ctx context.Context, grant models.BatchGrant, payload CallbackPayload) error

	mu      sync.RWMutex
	pending []string // batch ids in submission order
	batches map[string]*batchEntry
	wake    chan struct{}
}

// NewManager returns a manager storing batch files below jobsDir.
func NewManager(jobsDir string, defaults queue.DefaultsSource, runnerFor RunnerFactory) *Manager {
	return &Manager{
		JobsDir:   jobsDir,
		Defaults:  defaults,
		RunnerFor: runnerFor,
		batches:   make(map[string]*batchEntry),
		wake:      make(chan struct{}, 1),
	}
}

func newStatus(m Manifest) BatchStatus {
	st := BatchStatus{
		BatchID:     m.BatchID,
		State:       BatchStatePending,
		StateName:   BatchStatePending.String(),
		Total:       len(m.Items),
		Items:       make([]ItemStatus, len(m.Items)),
		SubmittedAt: m.CreatedAt,
	}
	for i, it := range m.Items {
		st.Items[i] = ItemStatus{Index: i, Name: it.Name, Stages: make([]models.StepStatus, models.StageCount)}
	}
	return st
}

// Upload is one image submitted with a batch.
type Upload struct {
	Name    string
	Payload []byte
}

// Submit validates a batch, writes it to disk and queues it. m.BatchID and
// m.Items are filled in by Submit.
func (mgr *Manager) Submit(m Manifest, uploads []Upload) (BatchStatus, error) {
	if len(uploads) == 0 {
		return BatchStatus{}, ErrNoItems
	}
	if m.Grant.MaxItems > 0 && len(uploads) > m.Grant.MaxItems {
		return BatchStatus{}, fmt.Errorf("%w: %d > %d", ErrTooManyItems, len(uploads), m.Grant.MaxItems)
	}
	if m.Defaults != nil {
		if err := settings.ValidateDefaults(*m.Defaults); err != nil {
			return BatchStatus{}, err
		}
	}
	if err := settings.ValidateOverrides(m.Overrides, len(uploads)); err != nil {
		return BatchStatus{}, err
	}

	m.BatchID = utils.NewBatchID()
	m.CreatedAt = time.Now()
	dir := filepath.Join(mgr.JobsDir, m.BatchID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return BatchStatus{}, fmt.Errorf("failed to create batch directory: %w", err)
	}

	m.Items = make([]ManifestItem, len(uploads))
	for i, up := range uploads {
		file := itemFile(i, up.Name)
		if err := os.WriteFile(filepath.Join(dir, file), up.Payload, 0644); err != nil {
			os.RemoveAll(dir)
			return BatchStatus{}, fmt.Errorf("failed to save item %d: %w", i, err)
		}
		m.Items[i] = ManifestItem{Name: up.Name, File: file}
	}
	if err := WriteManifest(dir, m); err != nil {
		os.RemoveAll(dir)
		return BatchStatus{}, err
	}

	key, err := taskqueue.AddToBatchQueue(m.BatchID, []byte(dir))
	if err != nil {
		logger.Warnf("Batch %s will not survive a restart: %v", m.BatchID, err)
		key = ""
	}

	st := mgr.addPending(m, dir, key)
	logger.Infof("Queued batch %s with %d items", m.BatchID, len(uploads))
	return st, nil
}

func (mgr *Manager) addPending(m Manifest, dir, key string) BatchStatus {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	entry := &batchEntry{status: newStatus(m), queueKey: key, dir: dir, grant: m.Grant}
	mgr.batches[m.BatchID] = entry
	mgr.pending = append(mgr.pending, m.BatchID)
	mgr.signal()
	return copyStatus(entry.status)
}

func (mgr *Manager) signal() {
	select {
	case mgr.wake <- struct{}{}:
	default:
	}
}

// Restore re-queues batches that were accepted before a restart.
func (mgr *Manager) Restore() (int, error) {
	entries, err := taskqueue.PendingBatches()
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, e := range entries {
		dir := string(e.Value)
		m, err := ReadManifest(dir)
		if err != nil {
			logger.Errorf("Dropping unreadable batch %s: %v", taskqueue.BatchIDFromKey(e.Key), err)
			taskqueue.DeleteFromBatchQueue(e.Key)
			continue
		}
		mgr.addPending(m, dir, e.Key)
		restored++
	}
	return restored, nil
}

// Status returns a snapshot of the batch.
func (mgr *Manager) Status(batchID string) (BatchStatus, bool) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	entry, ok := mgr.batches[batchID]
	if !ok {
		return BatchStatus{}, false
	}
	return copyStatus(entry.status), true
}

// Result returns the outcomes of a finished batch.
func (mgr *Manager) Result(batchID string) (models.BatchResult, BatchState, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	entry, ok := mgr.batches[batchID]
	if !ok {
		return models.BatchResult{}, 0, ErrBatchNotFound
	}
	if entry.result == nil {
		return models.BatchResult{}, entry.status.State, nil
	}
	return *entry.result, entry.status.State, nil
}

// PendingBatches returns the ids waiting to run.
func (mgr *Manager) PendingBatches() []string {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	ids := make([]string, len(mgr.pending))
	copy(ids, mgr.pending)
	return ids
}

// Cancel stops a batch. A pending batch is cancelled at once; a running batch
// stops before its next item.
func (mgr *Manager) Cancel(batchID string) error {
	mgr.mu.Lock()
	entry, ok := mgr.batches[batchID]
	if !ok {
		mgr.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}

	switch entry.status.State {
	case BatchStatePending:
		mgr.removePendingLocked(batchID)
		result := cancelledResult(entry.status.Items)
		entry.result = &result
		for i := range entry.status.Items {
			entry.status.Items[i].Outcome = &result.Outcomes[i]
		}
		mgr.finishLocked(entry, BatchStateCancelled)
		mgr.mu.Unlock()
		mgr.discard(entry.dir, entry.queueKey)
		logger.Infof("Cancelled pending batch %s", batchID)
		return nil
	case BatchStateProcessing:
		if entry.cancel != nil {
			entry.cancel()
		}
		mgr.mu.Unlock()
		logger.Infof("Cancelling batch %s after the current item", batchID)
		return nil
	default:
		state := entry.status.State
		mgr.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotCancellable, batchID, state)
	}
}

func cancelledResult(items []ItemStatus) models.BatchResult {
	result := models.BatchResult{Cancelled: true, Outcomes: make([]models.ItemOutcome, len(items))}
	for i, it := range items {
		result.Outcomes[i] = models.ItemOutcome{ItemIndex: i, ItemName: it.Name, Error: queue.CancelledMessage}
	}
	return result
}

func (mgr *Manager) removePendingLocked(batchID string) {
	for i, id := range mgr.pending {
		if id == batchID {
			mgr.pending = append(mgr.pending[:i], mgr.pending[i+1:]...)
			return
		}
	}
}

func (mgr *Manager) finishLocked(entry *batchEntry, state BatchState) {
	now := time.Now()
	entry.status.State = state
	entry.status.StateName = state.String()
	entry.status.FinishedAt = &now
	entry.cancel = nil
}

// discard removes a batch's files and its durable queue entry.
func (mgr *Manager) discard(dir, queueKey string) {
	if queueKey != "" {
		if err := taskqueue.DeleteFromBatchQueue(queueKey); err != nil {
			logger.Errorf("Failed to remove %s from batch queue: %v", queueKey, err)
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Errorf("Failed to cleanup batch directory %s: %v", dir, err)
	}
}

// next pops the oldest pending batch and marks it processing.
func (mgr *Manager) next(parent context.Context) (string, *batchEntry, context.Context, bool) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if len(mgr.pending) == 0 {
		return "", nil, nil, false
	}
	id := mgr.pending[0]
	mgr.pending = mgr.pending[1:]
	entry := mgr.batches[id]

	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	entry.cancel = cancel
	entry.status.State = BatchStateProcessing
	entry.status.StateName = BatchStateProcessing.String()
	entry.status.StartedAt = &now
	return id, entry, ctx, true
}

// ProcessPendingBatches runs queued batches one at a time until ctx is done.
// A batch already running when ctx ends is not cancelled; if the process exits
// before it finishes it stays in the durable queue and runs again after Restore.
func (mgr *Manager) ProcessPendingBatches(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	parent := context.WithoutCancel(ctx)
	for {
		for ctx.Err() == nil {
			id, entry, batchCtx, ok := mgr.next(parent)
			if !ok {
				break
			}
			mgr.processBatch(batchCtx, id, entry)
		}
		select {
		case <-ctx.Done():
			logger.Info("Batch worker stopped")
			return
		case <-mgr.wake:
		case <-ticker.C:
		}
	}
}

// RunPending processes everything queued right now and returns.
func (mgr *Manager) RunPending(ctx context.Context) int {
	n := 0
	for {
		id, entry, batchCtx, ok := mgr.next(ctx)
		if !ok {
			return n
		}
		mgr.processBatch(batchCtx, id, entry)
		n++
	}
}

func copyStatus(st BatchStatus) BatchStatus {
	out := st
	out.Items = make([]ItemStatus, len(st.Items))
	for i, it := range st.Items {
		it.Stages = append([]models.StepStatus(nil), it.Stages...)
		if it.Outcome != nil {
			o := *it.Outcome
			if o.Artifact != nil {
				a := *o.Artifact
				o.Artifact = &a
			}
			it.Outcome = &o
		}
		out.Items[i] = it
	}
	return out
}
