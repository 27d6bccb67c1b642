// Package settings resolves per-item animation configuration against the
// global defaults and validates user supplied configuration.
package settings

import "speedraw/models"

// Resolve merges an item's override with the global defaults.
//
// Single item batches and items without an override get the defaults
// verbatim. Otherwise every field present in the override wins, the resolved
// mode picks which mode group is kept, and fields belonging to the other mode
// are dropped silently.
func Resolve(override *models.OverrideConfig, defaults models.EffectiveConfig, batchSize int) models.EffectiveConfig {
	if override == nil || batchSize == 1 {
		return defaults.Clone()
	}

	mode := defaults.Mode
	if override.Mode != nil {
		mode = *override.Mode
	}

	drawing := defaults.DrawingDuration
	if override.DrawingDuration != nil {
		drawing = *override.DrawingDuration
	}
	fps := defaults.FPS
	if override.FPS != nil {
		fps = *override.FPS
	}

	if mode == models.ModeDrawingOnly {
		return models.NewDrawingOnlyConfig(drawing, fps, drawingOnlyGroup(override, defaults))
	}
	return models.NewFullConfig(drawing, fps, fullGroup(override, defaults))
}

// fullGroup starts from the defaults' full settings, or the built-in values
// when the defaults are in the other mode, and overlays the override.
func fullGroup(o *models.OverrideConfig, defaults models.EffectiveConfig) models.FullSettings {
	full := models.FullSettings{
		StyleChoice:          models.DefaultStyleChoice,
		RevealDuration:       models.DefaultRevealDuration,
		RevealAreaMultiplier: models.DefaultRevealAreaMultiplier,
	}
	if defaults.Full != nil {
		full = *defaults.Full
	}
	if o.StyleChoice != nil {
		full.StyleChoice = *o.StyleChoice
	}
	if o.RevealDuration != nil {
		full.RevealDuration = *o.RevealDuration
	}
	if o.RevealAreaMultiplier != nil {
		full.RevealAreaMultiplier = *o.RevealAreaMultiplier
	}
	return full
}

func drawingOnlyGroup(o *models.OverrideConfig, defaults models.EffectiveConfig) models.DrawingOnlySettings {
	colors := models.DrawingOnlySettings{
		LineColor:       models.DefaultLineColor,
		BackgroundColor: models.DefaultBackgroundColor,
	}
	if defaults.DrawingOnly != nil {
		colors = *defaults.DrawingOnly
	}
	if o.LineColor != nil {
		colors.LineColor = *o.LineColor
	}
	if o.BackgroundColor != nil {
		colors.BackgroundColor = *o.BackgroundColor
	}
	return colors
}

// CopyFirstToAll returns overrides where every item in a batch of count
// items uses the override of item 0. When item 0 selects a mode only that
// mode's fields are copied; otherwise both groups are copied and Resolve
// keeps the one matching the defaults. A missing item 0 override leaves the
// map unchanged.
func CopyFirstToAll(overrides map[int]models.OverrideConfig, count int) map[int]models.OverrideConfig {
	first, ok := overrides[0]
	if !ok || count <= 1 {
		return overrides
	}

	template := models.OverrideConfig{
		Mode:            first.Mode,
		DrawingDuration: first.DrawingDuration,
		FPS:             first.FPS,
	}
	if first.Mode == nil || *first.Mode == models.ModeDrawingOnly {
		template.LineColor = first.LineColor
		template.BackgroundColor = first.BackgroundColor
	}
	if first.Mode == nil || *first.Mode == models.ModeFull {
		template.StyleChoice = first.StyleChoice
		template.RevealDuration = first.RevealDuration
		template.RevealAreaMultiplier = first.RevealAreaMultiplier
	}

	out := make(map[int]models.OverrideConfig, count)
	out[0] = first
	for i := 1; i < count; i++ {
		out[i] = template
	}
	return out
}
