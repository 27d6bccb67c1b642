package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"speedraw/models"
	"speedraw/pipeline"
	"speedraw/pipeline/pipelinetest"
)

type statusEvent struct {
	stage models.Stage
	state models.StepState
	msg   string
}

func runOne(t *testing.T, fake *pipelinetest.Fake) (models.ItemOutcome, []statusEvent) {
	t.Helper()
	var events []statusEvent
	runner := pipeline.NewRunner(fake.Collaborators())
	item := pipelinetest.Items("cat.png")[0]
	out := runner.Run(context.Background(), item, models.BuiltinDefaults(), func(stage models.Stage, s models.StepStatus) {
		events = append(events, statusEvent{stage, s.State, s.Message})
	})
	return out, events
}

func TestRunSuccess(t *testing.T) {
	fake := pipelinetest.New()
	out, events := runOne(t, fake)

	if !out.Success || out.Artifact == nil {
		t.Fatalf("expected success with artifact, got %+v", out)
	}
	if out.Handle != "h0" || out.Artifact.Filename != "h0_animation.mp4" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	wantCalls := []string{"upload:cat.png", "infer:cat.png", "persist:cat.png", "render:cat.png"}
	if got := fake.Calls(); !reflect.DeepEqual(got, wantCalls) {
		t.Fatalf("calls = %v, want %v", got, wantCalls)
	}

	wantEvents := []statusEvent{
		{models.StageUpload, models.StepProcessing, ""},
		{models.StageUpload, models.StepSucceeded, ""},
		{models.StageInfer, models.StepProcessing, ""},
		{models.StageInfer, models.StepSucceeded, ""},
		{models.StageRender, models.StepProcessing, ""},
		{models.StageRender, models.StepSucceeded, ""},
	}
	if !reflect.DeepEqual(events, wantEvents) {
		t.Fatalf("events = %v, want %v", events, wantEvents)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	cases := []struct {
		name      string
		setup     func(f *pipelinetest.Fake)
		stage     models.Stage
		msg       string
		wantCalls []string
	}{
		{
			name:      "upload",
			setup:     func(f *pipelinetest.Fake) { f.UploadFailures["cat.png"] = "disk full" },
			stage:     models.StageUpload,
			msg:       "disk full",
			wantCalls: []string{"upload:cat.png"},
		},
		{
			name:      "infer",
			setup:     func(f *pipelinetest.Fake) { f.InferFailures["cat.png"] = "model unavailable" },
			stage:     models.StageInfer,
			msg:       "model unavailable",
			wantCalls: []string{"upload:cat.png", "infer:cat.png"},
		},
		{
			name:      "persist",
			setup:     func(f *pipelinetest.Fake) { f.PersistFailures["cat.png"] = "read-only fs" },
			stage:     models.StageInfer,
			msg:       "read-only fs",
			wantCalls: []string{"upload:cat.png", "infer:cat.png", "persist:cat.png"},
		},
		{
			name:      "render",
			setup:     func(f *pipelinetest.Fake) { f.RenderFailures["cat.png"] = "encoder crashed" },
			stage:     models.StageRender,
			msg:       "encoder crashed",
			wantCalls: []string{"upload:cat.png", "infer:cat.png", "persist:cat.png", "render:cat.png"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := pipelinetest.New()
			tc.setup(fake)
			out, events := runOne(t, fake)

			if out.Success || out.Artifact != nil {
				t.Fatalf("expected failure, got %+v", out)
			}
			if out.Error != tc.msg || out.Stage != tc.stage.String() {
				t.Fatalf("outcome = %+v, want stage %s msg %q", out, tc.stage, tc.msg)
			}
			if got := fake.Calls(); !reflect.DeepEqual(got, tc.wantCalls) {
				t.Fatalf("calls = %v, want %v", got, tc.wantCalls)
			}
			last := events[len(events)-1]
			if last.stage != tc.stage || last.state != models.StepFailed || last.msg != tc.msg {
				t.Fatalf("last event = %+v", last)
			}
			for _, ev := range events {
				if ev.stage > tc.stage {
					t.Fatalf("stage %s must not start after failure at %s", ev.stage, tc.stage)
				}
			}
		})
	}
}

func TestStageErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	err := error(pipeline.RenderError(cause))
	if !errors.Is(err, pipeline.ErrRender) {
		t.Fatal("expected render kind")
	}
	if errors.Is(err, pipeline.ErrUpload) {
		t.Fatal("render error must not match upload kind")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be unwrapped")
	}
	if err.Error() != "render error: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	same := pipeline.RenderError(fmt.Errorf("renderer: %w", err))
	if same.Kind != pipeline.ErrRender || same.Message != "boom" {
		t.Fatalf("same kind should be kept, got %+v", same)
	}

	// a collaborator returning another stage's error is tagged with the stage that failed
	retagged := pipeline.UploadError(fmt.Errorf("store: %w", err))
	if retagged.Stage != models.StageUpload || !errors.Is(retagged, pipeline.ErrUpload) {
		t.Fatalf("expected upload stage and kind, got %+v", retagged)
	}
	if errors.Is(retagged, pipeline.ErrRender) {
		t.Fatal("re-tagged error must not match the foreign kind")
	}
	if !errors.Is(retagged, cause) || retagged.Message != "boom" {
		t.Fatalf("cause and message should survive, got %+v", retagged)
	}
}

func TestRunReportsFailingStageForForeignStageError(t *testing.T) {
	fake := pipelinetest.New()
	fake.UploadErr = pipeline.RenderError(errors.New("quota exceeded"))
	out, _ := runOne(t, fake)
	if out.Success || out.Stage != models.StageUpload.String() || out.Error != "quota exceeded" {
		t.Fatalf("outcome = %+v, want upload failure", out)
	}
}
