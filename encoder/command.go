package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"speedraw/logger"
	"speedraw/models"
)

// CommandRenderer runs an external renderer binary once per item.
type CommandRenderer struct {
	Command string
	Files   Files
}

// NewCommandRenderer returns a renderer invoking command.
func NewCommandRenderer(command string, files Files) *CommandRenderer {
	return &CommandRenderer{Command: command, Files: files}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderArgs maps a configuration to command line flags. Only the flags of
// the active mode are emitted.
func RenderArgs(original, lineArt, output string, cfg models.EffectiveConfig) ([]string, error) {
	if err := cfg.CheckUnion(); err != nil {
		return nil, err
	}
	args := []string{
		"--image", original,
		"--line-art", lineArt,
		"--output", output,
		"--mode", string(cfg.Mode),
		"--drawing-duration", formatFloat(cfg.DrawingDuration),
		"--fps", strconv.Itoa(cfg.FPS),
	}
	switch cfg.Mode {
	case models.ModeFull:
		style, ok := models.PaintStyles[cfg.Full.StyleChoice]
		if !ok {
			return nil, fmt.Errorf("unknown style choice %d", cfg.Full.StyleChoice)
		}
		args = append(args,
			"--style", style.Name,
			"--reveal-duration", formatFloat(cfg.Full.RevealDuration),
			"--reveal-area-multiplier", formatFloat(cfg.Full.RevealAreaMultiplier),
		)
	case models.ModeDrawingOnly:
		args = append(args,
			"--line-color", cfg.DrawingOnly.LineColor,
			"--background-color", cfg.DrawingOnly.BackgroundColor,
		)
	}
	return args, nil
}

func (c *CommandRenderer) Render(ctx context.Context, handle string, cfg models.EffectiveConfig) (models.ArtifactRef, error) {
	original, err := c.Files.OriginalPath(handle)
	if err != nil {
		return models.ArtifactRef{}, err
	}
	lineArt := c.Files.LineArtPath(handle)
	if _, err := os.Stat(lineArt); err != nil {
		return models.ArtifactRef{}, fmt.Errorf("line art for %s: %w", handle, err)
	}
	output := c.Files.AnimationPath(handle)

	args, err := RenderArgs(original, lineArt, output, cfg)
	if err != nil {
		return models.ArtifactRef{}, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Stderr = &stderr
	logger.Debugf("Running %s %s", c.Command, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return models.ArtifactRef{}, fmt.Errorf("%s failed: %w", c.Command, err)
		}
		return models.ArtifactRef{}, fmt.Errorf("%s failed: %w: %s", c.Command, err, msg)
	}

	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		return models.ArtifactRef{}, fmt.Errorf("%s produced no animation", c.Command)
	}

	filename := filepath.Base(output)
	return models.ArtifactRef{URL: "/download/" + filename, Filename: filename}, nil
}
