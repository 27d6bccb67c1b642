package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"speedraw/logger"
	"speedraw/models"
	"speedraw/settings"
)

// defaultsFile mirrors defaults.toml. Both mode groups may be present; only
// the one selected by mode is used.
type defaultsFile struct {
	Mode            models.Mode                 `toml:"mode"`
	DrawingDuration float64                     `toml:"drawing_duration"`
	FPS             int                         `toml:"fps"`
	Full            *models.FullSettings        `toml:"full,omitempty"`
	DrawingOnly     *models.DrawingOnlySettings `toml:"drawing_only,omitempty"`
}

// LoadDefaults reads and validates the global defaults at path. A missing
// file yields the built-in defaults. Unset keys keep their built-in values.
func LoadDefaults(path string) (models.EffectiveConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return models.BuiltinDefaults(), nil
	}
	if err != nil {
		return models.EffectiveConfig{}, fmt.Errorf("read defaults %s: %w", path, err)
	}
	return ParseDefaults(data)
}

// ParseDefaults decodes a defaults TOML document.
func ParseDefaults(data []byte) (models.EffectiveConfig, error) {
	builtin := models.BuiltinDefaults()
	raw := defaultsFile{
		Mode:            builtin.Mode,
		DrawingDuration: builtin.DrawingDuration,
		FPS:             builtin.FPS,
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return models.EffectiveConfig{}, fmt.Errorf("parse defaults: %w", err)
	}

	var cfg models.EffectiveConfig
	switch raw.Mode {
	case models.ModeDrawingOnly:
		colors := models.DrawingOnlySettings{
			LineColor:       models.DefaultLineColor,
			BackgroundColor: models.DefaultBackgroundColor,
		}
		if raw.DrawingOnly != nil {
			if raw.DrawingOnly.LineColor != "" {
				colors.LineColor = raw.DrawingOnly.LineColor
			}
			if raw.DrawingOnly.BackgroundColor != "" {
				colors.BackgroundColor = raw.DrawingOnly.BackgroundColor
			}
		}
		cfg = models.NewDrawingOnlyConfig(raw.DrawingDuration, raw.FPS, colors)
	default:
		full := *builtin.Full
		if raw.Full != nil {
			if raw.Full.StyleChoice != 0 {
				full.StyleChoice = raw.Full.StyleChoice
			}
			if raw.Full.RevealDuration != 0 {
				full.RevealDuration = raw.Full.RevealDuration
			}
			if raw.Full.RevealAreaMultiplier != 0 {
				full.RevealAreaMultiplier = raw.Full.RevealAreaMultiplier
			}
		}
		cfg = models.NewFullConfig(raw.DrawingDuration, raw.FPS, full)
		cfg.Mode = raw.Mode
	}

	if err := settings.ValidateDefaults(cfg); err != nil {
		return models.EffectiveConfig{}, err
	}
	return cfg, nil
}

// SaveDefaults writes cfg to path as TOML.
func SaveDefaults(path string, cfg models.EffectiveConfig) error {
	if err := settings.ValidateDefaults(cfg); err != nil {
		return err
	}
	raw := defaultsFile{
		Mode:            cfg.Mode,
		DrawingDuration: cfg.DrawingDuration,
		FPS:             cfg.FPS,
		Full:            cfg.Full,
		DrawingOnly:     cfg.DrawingOnly,
	}
	data, err := toml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultsFile serves global defaults from a TOML file, re-reading it on
// every call so edits made while a batch runs apply to the next item.
// A broken file keeps the last good configuration in effect.
type DefaultsFile struct {
	Path string

	mu       sync.Mutex
	lastGood *models.EffectiveConfig
}

// NewDefaultsFile returns a source reading from path.
func NewDefaultsFile(path string) *DefaultsFile {
	return &DefaultsFile{Path: path}
}

// Defaults returns the current global defaults.
func (d *DefaultsFile) Defaults() models.EffectiveConfig {
	cfg, err := LoadDefaults(d.Path)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		logger.Warnf("Ignoring invalid defaults file %s: %v", d.Path, err)
		if d.lastGood != nil {
			return d.lastGood.Clone()
		}
		return models.BuiltinDefaults()
	}
	d.lastGood = &cfg
	return cfg.Clone()
}
