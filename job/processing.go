package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"speedraw/failures"
	"speedraw/logger"
	"speedraw/models"
	"speedraw/queue"
	"speedraw/results"
	"speedraw/success"
)

// processBatch runs one batch to completion and records its outcomes.
func (mgr *Manager) processBatch(ctx context.Context, batchID string, entry *batchEntry) {
	logger.Infof("Processing batch %s (%d items)", batchID, entry.status.Total)

	result, err := mgr.runBatch(ctx, batchID, entry)

	mgr.mu.Lock()
	state := BatchStateCompleted
	switch {
	case err != nil:
		state = BatchStateFailed
		entry.status.Error = err.Error()
	case result.Cancelled:
		state = BatchStateCancelled
	}
	if err == nil {
		entry.result = &result
	}
	cancel := entry.cancel
	mgr.finishLocked(entry, state)
	mgr.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if err != nil {
		logger.Errorf("Batch %s failed: %v", batchID, err)
		if storeErr := failures.StoreFailure(batchID, err); storeErr != nil {
			logger.Errorf("Failed to store failure for batch %s: %v", batchID, storeErr)
		}
	} else {
		summary := results.Summarize(result)
		logger.Infof("Batch %s %s: %d/%d succeeded", batchID, state, summary.SuccessCount, summary.TotalCount)
	}

	mgr.notify(batchID, state, result)
	mgr.discard(entry.dir, entry.queueKey)
}

func (mgr *Manager) runBatch(ctx context.Context, batchID string, entry *batchEntry) (models.BatchResult, error) {
	m, err := ReadManifest(entry.dir)
	if err != nil {
		return models.BatchResult{}, err
	}
	items, err := LoadItems(entry.dir, m)
	if err != nil {
		return models.BatchResult{}, err
	}
	if mgr.RunnerFor == nil {
		return models.BatchResult{}, errors.New("no runner configured")
	}
	runner, err := mgr.RunnerFor(m)
	if err != nil {
		return models.BatchResult{}, fmt.Errorf("failed to prepare runner: %w", err)
	}

	defaults := mgr.Defaults
	if m.Defaults != nil {
		defaults = queue.StaticDefaults(*m.Defaults)
	}

	configs := make(map[int]models.EffectiveConfig, len(items))
	result := queue.RunBatch(ctx, queue.Context{
		Items:     items,
		Defaults:  defaults,
		Overrides: m.Overrides,
	}, runner, queue.Options{
		OnConfig: func(i int, cfg models.EffectiveConfig) {
			configs[i] = cfg
		},
		OnStatus: func(i int, stage models.Stage, status models.StepStatus) {
			mgr.mu.Lock()
			entry.status.Items[i].Stages[stage] = status
			mgr.mu.Unlock()
		},
		OnProgress: func(completed, total int) {
			mgr.mu.Lock()
			entry.status.Completed = completed
			mgr.mu.Unlock()
		},
	})

	mgr.mu.Lock()
	for i := range result.Outcomes {
		out := result.Outcomes[i]
		entry.status.Items[i].Outcome = &out
	}
	mgr.mu.Unlock()

	recordOutcomes(batchID, result, configs)
	return result, nil
}

// recordOutcomes writes every item outcome to the success or failure store.
func recordOutcomes(batchID string, result models.BatchResult, configs map[int]models.EffectiveConfig) {
	for _, out := range result.Outcomes {
		var err error
		if out.Success {
			err = success.StoreSuccess(batchID, out, configs[out.ItemIndex])
		} else {
			err = failures.StoreItemFailure(batchID, out)
		}
		if err != nil {
			logger.Errorf("Failed to record outcome of item %d in batch %s: %v", out.ItemIndex, batchID, err)
		}
	}
}

// CallbackPayload is POSTed to the grant's completion callback.
type CallbackPayload struct {
	BatchID   string          `json:"batch_id"`
	Status    string          `json:"status"`
	Timestamp int64           `json:"timestamp"`
	Summary   results.Summary `json:"summary"`
}

func (mgr *Manager) notify(batchID string, state BatchState, result models.BatchResult) {
	grant, ok := mgr.grant(batchID)
	if !ok || grant.CompletionCallback == "" {
		return
	}
	payload := CallbackPayload{
		BatchID:   batchID,
		Status:    state.String(),
		Timestamp: time.Now().Unix(),
		Summary:   results.Summarize(result),
	}
	send := mgr.Callback
	if send == nil {
		send = sendCallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := send(ctx, grant, payload); err != nil {
		logger.Errorf("Failed to send callback for %s: %v", batchID, err)
	}
}

func (mgr *Manager) grant(batchID string) (models.BatchGrant, bool) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	entry, ok := mgr.batches[batchID]
	if !ok {
		return models.BatchGrant{}, false
	}
	return entry.grant, true
}

// sendCallback POSTs the completion payload to the grant's callback URL.
func sendCallback(ctx context.Context, grant models.BatchGrant, payload CallbackPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, grant.CompletionCallback, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Speedraw/1.0")
	for key, value := range grant.CallbackHeaders {
		req.Header.Set(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned non-2xx status: %d", resp.StatusCode)
	}
	logger.Infof("Successfully sent callback to %s", grant.CompletionCallback)
	return nil
}
