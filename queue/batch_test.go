package queue_test

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"speedraw/models"
	"speedraw/pipeline"
	"speedraw/pipeline/pipelinetest"
	"speedraw/queue"
)

type progress struct{ completed, total int }

func ptr[T any](v T) *T { return &v }

func run(ctx context.Context, fake *pipelinetest.Fake, batch queue.Context) (models.BatchResult, []progress) {
	var events []progress
	runner := pipeline.NewRunner(fake.Collaborators())
	result := queue.RunBatch(ctx, batch, runner, queue.Options{
		OnProgress: func(c, t int) { events = append(events, progress{c, t}) },
	})
	return result, events
}

func TestRunBatchIsolatesUploadFailure(t *testing.T) {
	fake := pipelinetest.New()
	fake.UploadFailures["b.png"] = "disk full"

	result, events := run(context.Background(), fake, queue.Context{
		Items:    pipelinetest.Items("a.png", "b.png", "c.png"),
		Defaults: queue.StaticDefaults(models.BuiltinDefaults()),
	})

	if result.Len() != 3 || result.Cancelled {
		t.Fatalf("unexpected result %+v", result)
	}
	want := []struct {
		success bool
		msg     string
	}{{true, ""}, {false, "disk full"}, {true, ""}}
	for i, w := range want {
		out := result.Outcomes[i]
		if out.ItemIndex != i || out.Success != w.success || out.Error != w.msg {
			t.Fatalf("outcome %d = %+v, want success=%v msg=%q", i, out, w.success, w.msg)
		}
	}
	if !reflect.DeepEqual(events, []progress{{1, 3}, {2, 3}, {3, 3}}) {
		t.Fatalf("progress = %v", events)
	}
	for _, call := range fake.Calls() {
		if strings.HasSuffix(call, ":b.png") && call != "upload:b.png" {
			t.Fatalf("stage after failed upload ran: %s", call)
		}
	}
}

func TestRunBatchEmpty(t *testing.T) {
	fake := pipelinetest.New()
	result, events := run(context.Background(), fake, queue.Context{})
	if result.Len() != 0 || result.Cancelled {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if len(events) != 0 {
		t.Fatalf("expected no progress events, got %v", events)
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("expected no collaborator calls, got %v", fake.Calls())
	}
}

func TestRunBatchOrderAndProgress(t *testing.T) {
	names := []string{"0.png", "1.png", "2.png", "3.png", "4.png", "5.png"}
	for failing := -1; failing < len(names); failing++ {
		fake := pipelinetest.New()
		if failing >= 0 {
			fake.RenderFailures[names[failing]] = "encoder crashed"
		}
		result, events := run(context.Background(), fake, queue.Context{Items: pipelinetest.Items(names...)})

		if result.Len() != len(names) {
			t.Fatalf("failing=%d: got %d outcomes", failing, result.Len())
		}
		for i, out := range result.Outcomes {
			if out.ItemIndex != i || out.ItemName != names[i] {
				t.Fatalf("failing=%d: outcome %d out of order: %+v", failing, i, out)
			}
			if out.Success == (i == failing) {
				t.Fatalf("failing=%d: outcome %d success=%v", failing, i, out.Success)
			}
		}
		for i, ev := range events {
			if ev.completed != i+1 || ev.total != len(names) {
				t.Fatalf("failing=%d: progress %d = %+v", failing, i, ev)
			}
		}
		if len(events) != len(names) {
			t.Fatalf("failing=%d: %d progress events", failing, len(events))
		}
	}
}

func TestRunBatchIsSequential(t *testing.T) {
	fake := pipelinetest.New()
	result, _ := run(context.Background(), fake, queue.Context{Items: pipelinetest.Items("a", "b")})
	if result.Len() != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	want := []string{
		"upload:a", "infer:a", "persist:a", "render:a",
		"upload:b", "infer:b", "persist:b", "render:b",
	}
	if got := fake.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

func TestRunBatchResolvesPerItemConfig(t *testing.T) {
	fake := pipelinetest.New()
	defaults := models.BuiltinDefaults()
	overrides := map[int]models.OverrideConfig{
		1: {
			Mode:            ptr(models.ModeDrawingOnly),
			DrawingDuration: ptr(5.0),
			FPS:             ptr(24),
			LineColor:       ptr("#3c3c3c"),
			BackgroundColor: ptr("#ffffff"),
		},
	}
	run(context.Background(), fake, queue.Context{
		Items:     pipelinetest.Items("a", "b"),
		Defaults:  queue.StaticDefaults(defaults),
		Overrides: overrides,
	})

	first, ok := fake.ConfigFor("a")
	if !ok || !reflect.DeepEqual(first, defaults) {
		t.Fatalf("item 0 config = %+v, want defaults", first)
	}
	second, ok := fake.ConfigFor("b")
	if !ok {
		t.Fatal("item 1 was not rendered")
	}
	if second.Mode != models.ModeDrawingOnly || second.Full != nil || second.DrawingOnly == nil {
		t.Fatalf("item 1 config = %+v", second)
	}
	if second.DrawingDuration != 5 || second.FPS != 24 {
		t.Fatalf("item 1 timing = %v/%v", second.DrawingDuration, second.FPS)
	}
}

func TestRunBatchSingleItemIgnoresOverride(t *testing.T) {
	fake := pipelinetest.New()
	defaults := models.BuiltinDefaults()
	run(context.Background(), fake, queue.Context{
		Items:     pipelinetest.Items("only"),
		Defaults:  queue.StaticDefaults(defaults),
		Overrides: map[int]models.OverrideConfig{0: {Mode: ptr(models.ModeDrawingOnly)}},
	})
	cfg, _ := fake.ConfigFor("only")
	if !reflect.DeepEqual(cfg, defaults) {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

// mutableDefaults changes FPS as the batch progresses.
type mutableDefaults struct{ fps int }

func (m *mutableDefaults) Defaults() models.EffectiveConfig {
	cfg := models.BuiltinDefaults()
	cfg.FPS = m.fps
	return cfg
}

func TestRunBatchReadsDefaultsBeforeEachItem(t *testing.T) {
	fake := pipelinetest.New()
	src := &mutableDefaults{fps: 30}
	fake.OnUpload = func(name string) {
		if name == "a" {
			src.fps = 12
		}
	}
	run(context.Background(), fake, queue.Context{
		Items:    pipelinetest.Items("a", "b"),
		Defaults: src,
	})
	a, _ := fake.ConfigFor("a")
	b, _ := fake.ConfigFor("b")
	if a.FPS != 30 || b.FPS != 12 {
		t.Fatalf("fps a=%d b=%d, want 30 and 12", a.FPS, b.FPS)
	}
}

func TestRunBatchCancelBetweenItems(t *testing.T) {
	fake := pipelinetest.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake.OnUpload = func(name string) {
		if name == "b" {
			cancel()
		}
	}

	result, events := run(ctx, fake, queue.Context{Items: pipelinetest.Items("a", "b", "c", "d")})

	if !result.Cancelled || result.Len() != 4 {
		t.Fatalf("unexpected result %+v", result)
	}
	// item b was already running when cancel fired and completes normally
	for i, wantSuccess := range []bool{true, true, false, false} {
		out := result.Outcomes[i]
		if out.ItemIndex != i || out.Success != wantSuccess {
			t.Fatalf("outcome %d = %+v", i, out)
		}
	}
	if result.Outcomes[2].Error != queue.CancelledMessage || result.Outcomes[3].ItemName != "d" {
		t.Fatalf("unexpected cancelled outcomes %+v", result.Outcomes[2:])
	}
	if !reflect.DeepEqual(events, []progress{{1, 4}, {2, 4}}) {
		t.Fatalf("progress = %v", events)
	}
	for _, call := range fake.Calls() {
		if strings.HasSuffix(call, ":c") || strings.HasSuffix(call, ":d") {
			t.Fatalf("cancelled item ran: %s", call)
		}
	}
}

func TestRunBatchStatusCarriesItemIndex(t *testing.T) {
	fake := pipelinetest.New()
	fake.InferFailures["b"] = "model unavailable"
	seen := map[int][]models.StepState{}
	queue.RunBatch(context.Background(), queue.Context{Items: pipelinetest.Items("a", "b")},
		pipeline.NewRunner(fake.Collaborators()),
		queue.Options{OnStatus: func(idx int, _ models.Stage, s models.StepStatus) {
			seen[idx] = append(seen[idx], s.State)
		}})

	if len(seen[0]) != 6 {
		t.Fatalf("item 0 statuses = %v", seen[0])
	}
	last := seen[1][len(seen[1])-1]
	if last != models.StepFailed {
		t.Fatalf("item 1 last status = %v", last)
	}
}
