package settings

import (
	"errors"
	"math"
	"testing"

	"speedraw/models"
)

func TestValidateDefaults(t *testing.T) {
	if err := ValidateDefaults(models.BuiltinDefaults()); err != nil {
		t.Fatalf("builtin defaults should be valid: %v", err)
	}

	broken := []struct {
		name  string
		cfg   models.EffectiveConfig
		field string
	}{
		{"unknown mode", models.EffectiveConfig{Mode: "sketch", DrawingDuration: 1, FPS: 1}, "animation_mode"},
		{"missing group", models.EffectiveConfig{Mode: models.ModeFull, DrawingDuration: 1, FPS: 1}, "animation_mode"},
		{"zero duration", models.NewFullConfig(0, 30, models.FullSettings{StyleChoice: 1, RevealDuration: 1, RevealAreaMultiplier: 1}), "drawing_duration"},
		{"nan duration", models.NewFullConfig(math.NaN(), 30, models.FullSettings{StyleChoice: 1, RevealDuration: 1, RevealAreaMultiplier: 1}), "drawing_duration"},
		{"zero fps", models.NewFullConfig(1, 0, models.FullSettings{StyleChoice: 1, RevealDuration: 1, RevealAreaMultiplier: 1}), "fps"},
		{"style out of range", models.NewFullConfig(1, 30, models.FullSettings{StyleChoice: 6, RevealDuration: 1, RevealAreaMultiplier: 1}), "style_choice"},
		{"negative area", models.NewFullConfig(1, 30, models.FullSettings{StyleChoice: 1, RevealDuration: 1, RevealAreaMultiplier: -1}), "reveal_area_multiplier"},
		{"bad color", models.NewDrawingOnlyConfig(1, 30, models.DrawingOnlySettings{LineColor: "red", BackgroundColor: "#ffffff"}), "line_color"},
	}
	for _, tc := range broken {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDefaults(tc.cfg)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("field = %s, want %s", verr.Field, tc.field)
			}
		})
	}
}

func TestValidateOverrides(t *testing.T) {
	good := map[int]models.OverrideConfig{
		0: {Mode: ptr(models.ModeDrawingOnly), LineColor: ptr("#3C3C3C")},
		1: {FPS: ptr(24), StyleChoice: ptr(5)},
	}
	if err := ValidateOverrides(good, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ValidateOverrides(map[int]models.OverrideConfig{2: {}}, 2); err == nil {
		t.Fatal("expected out of range index to fail")
	}

	err := ValidateOverrides(map[int]models.OverrideConfig{1: {BackgroundColor: ptr("#fff")}}, 2)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "background_color" {
		t.Fatalf("expected background_color ValidationError, got %v", err)
	}

	mode := models.Mode("watercolor")
	if err := ValidateOverride(models.OverrideConfig{Mode: &mode}); err == nil {
		t.Fatal("expected unknown mode to fail")
	}
}

func TestValidateOverrideIgnoresInactiveModeFields(t *testing.T) {
	stale := models.OverrideConfig{
		Mode:        ptr(models.ModeDrawingOnly),
		StyleChoice: ptr(0),
		LineColor:   ptr("#3c3c3c"),
	}
	if err := ValidateOverrides(map[int]models.OverrideConfig{1: stale}, 2); err != nil {
		t.Fatalf("full mode fields should be ignored for a drawing_only override: %v", err)
	}
	cfg := Resolve(&stale, models.BuiltinDefaults(), 2)
	if cfg.Mode != models.ModeDrawingOnly || cfg.Full != nil {
		t.Fatalf("resolved config = %+v", cfg)
	}

	full := models.OverrideConfig{Mode: ptr(models.ModeFull), BackgroundColor: ptr("white")}
	if err := ValidateOverride(full); err != nil {
		t.Fatalf("drawing_only fields should be ignored for a full override: %v", err)
	}

	cases := []struct {
		name     string
		override models.OverrideConfig
		field    string
	}{
		{"selected mode still checked", models.OverrideConfig{Mode: ptr(models.ModeFull), StyleChoice: ptr(9)}, "style_choice"},
		{"no mode checks full fields", models.OverrideConfig{RevealDuration: ptr(-1.0)}, "reveal_duration"},
		{"no mode checks colors", models.OverrideConfig{LineColor: ptr("red")}, "line_color"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verr *ValidationError
			err := ValidateOverride(tc.override)
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected %s ValidationError, got %v", tc.field, err)
			}
		})
	}
}
