package settings

import (
	"fmt"
	"math"
	"regexp"

	"speedraw/models"
)

// ValidationError reports a configuration field outside its allowed range.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func checkDuration(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid(field, "must be a positive number of seconds, got %v", v)
	}
	return nil
}

func checkPositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid(field, "must be positive, got %v", v)
	}
	return nil
}

func checkFPS(v int) error {
	if v <= 0 {
		return invalid("fps", "must be a positive integer, got %d", v)
	}
	return nil
}

func checkStyle(v int) error {
	if _, ok := models.PaintStyles[v]; !ok {
		return invalid("style_choice", "must be between 1 and 5, got %d", v)
	}
	return nil
}

func checkColor(field, v string) error {
	if !hexColor.MatchString(v) {
		return invalid(field, "must be a #rrggbb color, got %q", v)
	}
	return nil
}

// ValidateDefaults checks a complete configuration, including the mode union.
func ValidateDefaults(c models.EffectiveConfig) error {
	if !c.Mode.Valid() {
		return invalid("animation_mode", "unknown mode %q", c.Mode)
	}
	if err := c.CheckUnion(); err != nil {
		return invalid("animation_mode", "%v", err)
	}
	if err := checkDuration("drawing_duration", c.DrawingDuration); err != nil {
		return err
	}
	if err := checkFPS(c.FPS); err != nil {
		return err
	}
	if c.Full != nil {
		if err := checkStyle(c.Full.StyleChoice); err != nil {
			return err
		}
		if err := checkDuration("reveal_duration", c.Full.RevealDuration); err != nil {
			return err
		}
		if err := checkPositive("reveal_area_multiplier", c.Full.RevealAreaMultiplier); err != nil {
			return err
		}
	}
	if c.DrawingOnly != nil {
		if err := checkColor("line_color", c.DrawingOnly.LineColor); err != nil {
			return err
		}
		if err := checkColor("background_color", c.DrawingOnly.BackgroundColor); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOverride checks the fields an override contributes. When the
// override selects a mode, fields of the other mode are dropped by Resolve and
// are not checked. Without a mode both groups are checked, since the mode
// comes from defaults that may change before the item starts.
func ValidateOverride(o models.OverrideConfig) error {
	if o.Mode != nil && !o.Mode.Valid() {
		return invalid("animation_mode", "unknown mode %q", *o.Mode)
	}
	if o.DrawingDuration != nil {
		if err := checkDuration("drawing_duration", *o.DrawingDuration); err != nil {
			return err
		}
	}
	if o.FPS != nil {
		if err := checkFPS(*o.FPS); err != nil {
			return err
		}
	}
	if o.Mode == nil || *o.Mode == models.ModeFull {
		if err := validateFullFields(o); err != nil {
			return err
		}
	}
	if o.Mode == nil || *o.Mode == models.ModeDrawingOnly {
		if err := validateDrawingOnlyFields(o); err != nil {
			return err
		}
	}
	return nil
}

func validateFullFields(o models.OverrideConfig) error {
	if o.StyleChoice != nil {
		if err := checkStyle(*o.StyleChoice); err != nil {
			return err
		}
	}
	if o.RevealDuration != nil {
		if err := checkDuration("reveal_duration", *o.RevealDuration); err != nil {
			return err
		}
	}
	if o.RevealAreaMultiplier != nil {
		if err := checkPositive("reveal_area_multiplier", *o.RevealAreaMultiplier); err != nil {
			return err
		}
	}
	return nil
}

func validateDrawingOnlyFields(o models.OverrideConfig) error {
	if o.LineColor != nil {
		if err := checkColor("line_color", *o.LineColor); err != nil {
			return err
		}
	}
	if o.BackgroundColor != nil {
		if err := checkColor("background_color", *o.BackgroundColor); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOverrides checks every override and that its index addresses an
// item of a batch with count items.
func ValidateOverrides(overrides map[int]models.OverrideConfig, count int) error {
	for idx, o := range overrides {
		if idx < 0 || idx >= count {
			return invalid("overrides", "index %d out of range for %d items", idx, count)
		}
		if err := ValidateOverride(o); err != nil {
			return fmt.Errorf("item %d: %w", idx, err)
		}
	}
	return nil
}
