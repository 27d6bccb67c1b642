package settings

import (
	"reflect"
	"testing"

	"speedraw/models"
)

func ptr[T any](v T) *T { return &v }

func fullDefaults() models.EffectiveConfig {
	return models.NewFullConfig(8, 30, models.FullSettings{
		StyleChoice:          1,
		RevealDuration:       10,
		RevealAreaMultiplier: 1.0,
	})
}

func TestResolveOverrideSwitchesMode(t *testing.T) {
	defaults := fullDefaults()
	override := models.OverrideConfig{
		Mode:            ptr(models.ModeDrawingOnly),
		LineColor:       ptr("#3c3c3c"),
		BackgroundColor: ptr("#ffffff"),
		DrawingDuration: ptr(5.0),
		FPS:             ptr(24),
	}

	first := Resolve(nil, defaults, 2)
	if !reflect.DeepEqual(first, defaults) {
		t.Fatalf("item without override should get defaults, got %+v", first)
	}

	second := Resolve(&override, defaults, 2)
	want := models.NewDrawingOnlyConfig(5, 24, models.DrawingOnlySettings{
		LineColor:       "#3c3c3c",
		BackgroundColor: "#ffffff",
	})
	if !reflect.DeepEqual(second, want) {
		t.Fatalf("resolved = %+v, want %+v", second, want)
	}
	if second.Full != nil {
		t.Fatalf("full settings must be dropped for drawing_only, got %+v", second.Full)
	}
}

func TestResolveSingleItemIgnoresOverride(t *testing.T) {
	defaults := fullDefaults()
	override := models.OverrideConfig{
		Mode:        ptr(models.ModeDrawingOnly),
		FPS:         ptr(12),
		StyleChoice: ptr(4),
	}
	got := Resolve(&override, defaults, 1)
	if !reflect.DeepEqual(got, defaults) {
		t.Fatalf("single item batch must use defaults verbatim, got %+v", got)
	}
}

func TestResolveDropsOtherModeFields(t *testing.T) {
	defaults := fullDefaults()
	override := models.OverrideConfig{
		StyleChoice: ptr(3),
		LineColor:   ptr("#000000"), // ignored: resolved mode is full
	}
	got := Resolve(&override, defaults, 3)
	if got.Mode != models.ModeFull {
		t.Fatalf("mode = %s, want full", got.Mode)
	}
	if got.DrawingOnly != nil {
		t.Fatalf("drawing_only group must be empty, got %+v", got.DrawingOnly)
	}
	if got.Full.StyleChoice != 3 || got.Full.RevealDuration != 10 {
		t.Fatalf("unexpected full settings %+v", got.Full)
	}
}

func TestResolveFillsMissingGroupFromBuiltins(t *testing.T) {
	defaults := models.NewDrawingOnlyConfig(6, 24, models.DrawingOnlySettings{
		LineColor:       "#111111",
		BackgroundColor: "#eeeeee",
	})
	override := models.OverrideConfig{
		Mode:        ptr(models.ModeFull),
		StyleChoice: ptr(2),
	}
	got := Resolve(&override, defaults, 2)
	want := models.NewFullConfig(6, 24, models.FullSettings{
		StyleChoice:          2,
		RevealDuration:       models.DefaultRevealDuration,
		RevealAreaMultiplier: models.DefaultRevealAreaMultiplier,
	})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("resolved = %+v, want %+v", got, want)
	}
}

func TestResolveAlwaysProjectsOneGroup(t *testing.T) {
	defaultsSet := []models.EffectiveConfig{
		fullDefaults(),
		models.NewDrawingOnlyConfig(4, 12, models.DrawingOnlySettings{LineColor: "#000000", BackgroundColor: "#ffffff"}),
	}
	overrides := []*models.OverrideConfig{
		nil,
		{},
		{Mode: ptr(models.ModeFull)},
		{Mode: ptr(models.ModeDrawingOnly)},
		{Mode: ptr(models.ModeFull), LineColor: ptr("#123456"), BackgroundColor: ptr("#654321")},
		{Mode: ptr(models.ModeDrawingOnly), StyleChoice: ptr(5), RevealDuration: ptr(3.0)},
		{FPS: ptr(60), RevealAreaMultiplier: ptr(2.0), LineColor: ptr("#abcdef")},
	}
	for _, d := range defaultsSet {
		for _, o := range overrides {
			for _, size := range []int{1, 2, 5} {
				got := Resolve(o, d, size)
				if err := got.CheckUnion(); err != nil {
					t.Errorf("Resolve(%+v, %s, %d): %v", o, d.Mode, size, err)
				}
			}
		}
	}
}

func TestResolveDoesNotAliasDefaults(t *testing.T) {
	defaults := fullDefaults()
	got := Resolve(nil, defaults, 1)
	got.Full.StyleChoice = 5
	if defaults.Full.StyleChoice != 1 {
		t.Fatal("mutating a resolved config must not change the defaults")
	}
}

func TestCopyFirstToAll(t *testing.T) {
	overrides := map[int]models.OverrideConfig{
		0: {
			Mode:            ptr(models.ModeDrawingOnly),
			DrawingDuration: ptr(4.0),
			LineColor:       ptr("#222222"),
			BackgroundColor: ptr("#dddddd"),
			StyleChoice:     ptr(3), // not copied, other mode
		},
		2: {FPS: ptr(12)},
	}
	got := CopyFirstToAll(overrides, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 overrides, got %d", len(got))
	}
	for i := 1; i < 3; i++ {
		o := got[i]
		if o.Mode == nil || *o.Mode != models.ModeDrawingOnly {
			t.Errorf("item %d mode not copied", i)
		}
		if o.LineColor == nil || *o.LineColor != "#222222" {
			t.Errorf("item %d line color not copied", i)
		}
		if o.StyleChoice != nil {
			t.Errorf("item %d should not receive full mode fields", i)
		}
		if o.FPS != nil {
			t.Errorf("item %d fps should come from item 0 (unset)", i)
		}
	}

	unchanged := CopyFirstToAll(map[int]models.OverrideConfig{1: {}}, 3)
	if len(unchanged) != 1 {
		t.Fatalf("missing item 0 should leave overrides alone, got %d entries", len(unchanged))
	}
}

func TestCopyFirstToAllWithoutModeFollowsDefaults(t *testing.T) {
	overrides := map[int]models.OverrideConfig{
		0: {LineColor: ptr("#101010"), StyleChoice: ptr(4)},
	}
	got := CopyFirstToAll(overrides, 2)
	o := got[1]
	if o.LineColor == nil || o.StyleChoice == nil {
		t.Fatalf("both groups should be copied when item 0 has no mode, got %+v", o)
	}

	drawingDefaults := models.NewDrawingOnlyConfig(8, 30, models.DrawingOnlySettings{
		LineColor:       "#3c3c3c",
		BackgroundColor: "#ffffff",
	})
	cfg := Resolve(&o, drawingDefaults, 2)
	if cfg.DrawingOnly == nil || cfg.DrawingOnly.LineColor != "#101010" || cfg.Full != nil {
		t.Fatalf("item 1 should keep item 0's line color under drawing_only defaults, got %+v", cfg)
	}

	cfg = Resolve(&o, fullDefaults(), 2)
	if cfg.Full == nil || cfg.Full.StyleChoice != 4 || cfg.DrawingOnly != nil {
		t.Fatalf("item 1 should keep item 0's style under full defaults, got %+v", cfg)
	}
}
