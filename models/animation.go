package models

import "fmt"

// Mode selects which animation is rendered for an item.
type Mode string

const (
	ModeFull        Mode = "full"         // speed drawing followed by a paint reveal
	ModeDrawingOnly Mode = "drawing_only" // speed drawing on a flat background
)

// Valid reports whether m is one of the two known mode tags.
func (m Mode) Valid() bool {
	return m == ModeFull || m == ModeDrawingOnly
}

// Fallback values used when a mode group has to be filled without a source value.
const (
	DefaultMode                 = ModeFull
	DefaultDrawingDuration      = 8.0
	DefaultFPS                  = 30
	DefaultStyleChoice          = 1
	DefaultRevealDuration       = 10.0
	DefaultRevealAreaMultiplier = 1.0
	DefaultLineColor            = "#3c3c3c"
	DefaultBackgroundColor      = "#ffffff"
)

// FullSettings holds the paint reveal parameters used by ModeFull.
type FullSettings struct {
	StyleChoice          int     `json:"style_choice" toml:"style_choice" yaml:"style_choice"`
	RevealDuration       float64 `json:"reveal_duration" toml:"reveal_duration" yaml:"reveal_duration"`
	RevealAreaMultiplier float64 `json:"reveal_area_multiplier" toml:"reveal_area_multiplier" yaml:"reveal_area_multiplier"`
}

// DrawingOnlySettings holds the colors used by ModeDrawingOnly.
type DrawingOnlySettings struct {
	LineColor       string `json:"line_color" toml:"line_color" yaml:"line_color"`
	BackgroundColor string `json:"background_color" toml:"background_color" yaml:"background_color"`
}

// EffectiveConfig is the fully resolved configuration for one item.
// Exactly one of Full and DrawingOnly is set, matching Mode.
type EffectiveConfig struct {
	Mode            Mode                 `json:"animation_mode" yaml:"animation_mode"`
	DrawingDuration float64              `json:"drawing_duration" yaml:"drawing_duration"`
	FPS             int                  `json:"fps" yaml:"fps"`
	Full            *FullSettings        `json:"full,omitempty" yaml:"full,omitempty"`
	DrawingOnly     *DrawingOnlySettings `json:"drawing_only,omitempty" yaml:"drawing_only,omitempty"`
}

// GlobalDefaultConfig has the same shape as EffectiveConfig.
type GlobalDefaultConfig = EffectiveConfig

// NewFullConfig builds a ModeFull configuration.
func NewFullConfig(drawingDuration float64, fps int, full FullSettings) EffectiveConfig {
	return EffectiveConfig{
		Mode:            ModeFull,
		DrawingDuration: drawingDuration,
		FPS:             fps,
		Full:            &full,
	}
}

// NewDrawingOnlyConfig builds a ModeDrawingOnly configuration.
func NewDrawingOnlyConfig(drawingDuration float64, fps int, colors DrawingOnlySettings) EffectiveConfig {
	return EffectiveConfig{
		Mode:            ModeDrawingOnly,
		DrawingDuration: drawingDuration,
		FPS:             fps,
		DrawingOnly:     &colors,
	}
}

// BuiltinDefaults returns the configuration the service starts with when no
// defaults file is present.
func BuiltinDefaults() EffectiveConfig {
	return NewFullConfig(DefaultDrawingDuration, DefaultFPS, FullSettings{
		StyleChoice:          DefaultStyleChoice,
		RevealDuration:       DefaultRevealDuration,
		RevealAreaMultiplier: DefaultRevealAreaMultiplier,
	})
}

// CheckUnion returns an error unless exactly the group selected by Mode is populated.
func (c EffectiveConfig) CheckUnion() error {
	switch c.Mode {
	case ModeFull:
		if c.Full == nil || c.DrawingOnly != nil {
			return fmt.Errorf("mode %s requires only full settings", c.Mode)
		}
	case ModeDrawingOnly:
		if c.DrawingOnly == nil || c.Full != nil {
			return fmt.Errorf("mode %s requires only drawing_only settings", c.Mode)
		}
	default:
		return fmt.Errorf("unknown animation mode %q", c.Mode)
	}
	return nil
}

// Clone returns a deep copy so callers never share mode group pointers.
func (c EffectiveConfig) Clone() EffectiveConfig {
	out := c
	if c.Full != nil {
		full := *c.Full
		out.Full = &full
	}
	if c.DrawingOnly != nil {
		colors := *c.DrawingOnly
		out.DrawingOnly = &colors
	}
	return out
}

// OverrideConfig is a partial per-item configuration. Nil fields fall back to
// the global defaults.
type OverrideConfig struct {
	Mode                 *Mode    `json:"animation_mode,omitempty" yaml:"animation_mode,omitempty"`
	DrawingDuration      *float64 `json:"drawing_duration,omitempty" yaml:"drawing_duration,omitempty"`
	FPS                  *int     `json:"fps,omitempty" yaml:"fps,omitempty"`
	StyleChoice          *int     `json:"style_choice,omitempty" yaml:"style_choice,omitempty"`
	RevealDuration       *float64 `json:"reveal_duration,omitempty" yaml:"reveal_duration,omitempty"`
	RevealAreaMultiplier *float64 `json:"reveal_area_multiplier,omitempty" yaml:"reveal_area_multiplier,omitempty"`
	LineColor            *string  `json:"line_color,omitempty" yaml:"line_color,omitempty"`
	BackgroundColor      *string  `json:"background_color,omitempty" yaml:"background_color,omitempty"`
}

// PaintStyle describes one reveal style a renderer understands.
type PaintStyle struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BestFor     string `json:"best_for"`
}

// PaintStyles maps style choices 1-5 to their renderer names.
var PaintStyles = map[int]PaintStyle{
	1: {Name: "classic_stroke", Description: "Long, continuous brush strokes.", BestFor: "biography, education, history"},
	2: {Name: "chaotic_scribble", Description: "Short, energetic scribbles across the canvas.", BestFor: "high energy content, modern art"},
	3: {Name: "textured_brush", Description: "Simulated real brush with texture.", BestFor: "fine art, high production content"},
	4: {Name: "random_line_following", Description: "Follows the line art paths in random order.", BestFor: "natural, organic reveal"},
	5: {Name: "line_art_following", Description: "Follows the line art paths in drawing order.", BestFor: "reveal that tracks the original drawing"},
}
