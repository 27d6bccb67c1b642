// Package pipeline runs the upload, infer and render stages for a single item.
package pipeline

import (
	"context"
	"fmt"

	"speedraw/logger"
	"speedraw/models"
)

// Uploader stores an item payload and returns an opaque item handle.
type Uploader interface {
	Upload(ctx context.Context, name string, payload []byte) (string, error)
}

// Inferencer turns an image into line art.
type Inferencer interface {
	Infer(ctx context.Context, payload []byte) ([]byte, error)
}

// LineArtStore persists line art next to the uploaded item.
type LineArtStore interface {
	PersistLineArt(ctx context.Context, handle string, lineArt []byte) error
}

// Renderer synthesizes the animation for an uploaded item.
type Renderer interface {
	Render(ctx context.Context, handle string, cfg models.EffectiveConfig) (models.ArtifactRef, error)
}

// Collaborators bundles the external operations the runner drives.
type Collaborators struct {
	Uploader   Uploader
	Inferencer Inferencer
	LineArt    LineArtStore
	Renderer   Renderer
}

// StatusFunc observes stage transitions. stage indexes models.StageUpload..StageRender.
type StatusFunc func(stage models.Stage, status models.StepStatus)

// ItemState tracks where an item is in its pipeline.
type ItemState int

const (
	ItemPending ItemState = iota
	ItemUploading
	ItemInferring
	ItemRendering
	ItemSucceeded
	ItemFailed
)

func (s ItemState) String() string {
	switch s {
	case ItemPending:
		return "pending"
	case ItemUploading:
		return "uploading"
	case ItemInferring:
		return "inferring"
	case ItemRendering:
		return "rendering"
	case ItemSucceeded:
		return "succeeded"
	case ItemFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// isValidTransition enforces the linear pipeline edges. Failure is only
// reachable from an in-progress state and nothing leaves a terminal state.
func isValidTransition(from, to ItemState) bool {
	switch from {
	case ItemPending:
		return to == ItemUploading
	case ItemUploading:
		return to == ItemInferring || to == ItemFailed
	case ItemInferring:
		return to == ItemRendering || to == ItemFailed
	case ItemRendering:
		return to == ItemSucceeded || to == ItemFailed
	default:
		return false
	}
}

// Runner executes the fixed three stage pipeline for one item.
type Runner struct {
	collab Collaborators
}

// NewRunner returns a runner bound to the given collaborators.
func NewRunner(collab Collaborators) *Runner {
	return &Runner{collab: collab}
}

// itemRun is the bookkeeping for one Run call.
type itemRun struct {
	item     models.Item
	state    ItemState
	onStatus StatusFunc
	outcome  models.ItemOutcome
}

func (r *itemRun) transition(to ItemState) {
	if !isValidTransition(r.state, to) {
		// programming error: stages are driven in a fixed order below
		panic(fmt.Sprintf("invalid item transition: %s -> %s", r.state, to))
	}
	r.state = to
}

func (r *itemRun) emit(stage models.Stage, status models.StepStatus) {
	if r.onStatus != nil {
		r.onStatus(stage, status)
	}
}

func (r *itemRun) start(stage models.Stage, state ItemState) {
	r.transition(state)
	r.emit(stage, models.StepStatus{State: models.StepProcessing})
}

func (r *itemRun) succeed(stage models.Stage) {
	r.emit(stage, models.StepStatus{State: models.StepSucceeded})
}

func (r *itemRun) fail(serr *StageError) models.ItemOutcome {
	r.transition(ItemFailed)
	r.emit(serr.Stage, models.StepStatus{State: models.StepFailed, Message: serr.Message})
	r.outcome.Success = false
	r.outcome.Stage = serr.Stage.String()
	r.outcome.Error = serr.Message
	logger.Warnf("Item %d (%s) failed at %s: %v", r.item.Index, r.item.Name, serr.Stage, serr)
	return r.outcome
}

// Run drives item through upload, infer and render. Any stage failure ends
// the run and is reported in the returned outcome; Run never returns an error.
func (rn *Runner) Run(ctx context.Context, item models.Item, cfg models.EffectiveConfig, onStatus StatusFunc) models.ItemOutcome {
	run := &itemRun{
		item:     item,
		state:    ItemPending,
		onStatus: onStatus,
		outcome:  models.ItemOutcome{ItemIndex: item.Index, ItemName: item.Name},
	}

	run.start(models.StageUpload, ItemUploading)
	handle, err := rn.collab.Uploader.Upload(ctx, item.Name, item.Payload)
	if err != nil {
		return run.fail(UploadError(err))
	}
	run.outcome.Handle = handle
	run.succeed(models.StageUpload)
	logger.Debugf("Item %d uploaded as %s", item.Index, handle)

	run.start(models.StageInfer, ItemInferring)
	lineArt, err := rn.collab.Inferencer.Infer(ctx, item.Payload)
	if err != nil {
		return run.fail(InferenceError(err))
	}
	if err := rn.collab.LineArt.PersistLineArt(ctx, handle, lineArt); err != nil {
		return run.fail(PersistError(err))
	}
	run.succeed(models.StageInfer)

	run.start(models.StageRender, ItemRendering)
	ref, err := rn.collab.Renderer.Render(ctx, handle, cfg)
	if err != nil {
		return run.fail(RenderError(err))
	}
	run.transition(ItemSucceeded)
	run.succeed(models.StageRender)

	run.outcome.Success = true
	run.outcome.Artifact = &ref
	logger.Infof("Item %d (%s) rendered: %s", item.Index, item.Name, ref.Filename)
	return run.outcome
}
