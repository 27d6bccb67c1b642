// Package queue runs a batch of items through the pipeline one at a time.
package queue

import (
	"context"

	"speedraw/logger"
	"speedraw/models"
	"speedraw/pipeline"
	"speedraw/settings"
)

// CancelledMessage is the error recorded for items that never started
// because the batch was cancelled.
const CancelledMessage = "cancelled before start"

// DefaultsSource yields the global defaults at the moment an item starts.
type DefaultsSource interface {
	Defaults() models.EffectiveConfig
}

// StaticDefaults is a DefaultsSource that never changes.
type StaticDefaults models.EffectiveConfig

func (s StaticDefaults) Defaults() models.EffectiveConfig {
	return models.EffectiveConfig(s).Clone()
}

// ItemRunner executes the pipeline for one item.
type ItemRunner interface {
	Run(ctx context.Context, item models.Item, cfg models.EffectiveConfig, onStatus pipeline.StatusFunc) models.ItemOutcome
}

// Context carries everything a batch needs. Overrides are keyed by item index.
type Context struct {
	Items     []models.Item
	Defaults  DefaultsSource
	Overrides map[int]models.OverrideConfig
}

// Options holds optional observers.
type Options struct {
	// OnProgress fires once after each item reaches a terminal state.
	OnProgress func(completed, total int)
	// OnStatus fires for every stage transition of every item.
	OnStatus func(itemIndex int, stage models.Stage, status models.StepStatus)
	// OnConfig fires with the resolved configuration right before an item starts.
	OnConfig func(itemIndex int, cfg models.EffectiveConfig)
}

// RunBatch processes batch.Items strictly in order. A failing item never stops
// the batch. ctx is checked between items only; once it is done every
// remaining item is recorded as failed with CancelledMessage and the result is
// marked cancelled.
func RunBatch(ctx context.Context, batch Context, runner ItemRunner, opts Options) models.BatchResult {
	total := len(batch.Items)
	result := models.BatchResult{Outcomes: make([]models.ItemOutcome, 0, total)}
	if total == 0 {
		return result
	}

	defaults := batch.Defaults
	if defaults == nil {
		defaults = StaticDefaults(models.BuiltinDefaults())
	}

	for i, item := range batch.Items {
		// outcomes are indexed by position, whatever the caller put in Item.Index
		item.Index = i

		if err := ctx.Err(); err != nil {
			logger.Infof("Batch cancelled after %d of %d items: %v", i, total, err)
			result.Cancelled = true
			for _, rest := range batch.Items[i:] {
				result.Outcomes = append(result.Outcomes, models.ItemOutcome{
					ItemIndex: len(result.Outcomes),
					ItemName:  rest.Name,
					Error:     CancelledMessage,
				})
			}
			return result
		}

		var override *models.OverrideConfig
		if o, ok := batch.Overrides[i]; ok {
			override = &o
		}
		cfg := settings.Resolve(override, defaults.Defaults(), total)
		if opts.OnConfig != nil {
			opts.OnConfig(i, cfg)
		}
		logger.Debugf("Item %d/%d (%s) resolved to mode %s", i+1, total, item.Name, cfg.Mode)

		var onStatus pipeline.StatusFunc
		if opts.OnStatus != nil {
			idx := i
			onStatus = func(stage models.Stage, status models.StepStatus) {
				opts.OnStatus(idx, stage, status)
			}
		}

		outcome := runner.Run(ctx, item, cfg, onStatus)
		outcome.ItemIndex = i
		result.Outcomes = append(result.Outcomes, outcome)

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, total)
		}
	}

	return result
}
