package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"speedraw/logger"
	"speedraw/models"
)

// HTTPOptions tunes the remote renderer client.
type HTTPOptions struct {
	Timeout time.Duration
	Client  *http.Client
}

// HTTPRenderer asks a remote animation service to render an item. The
// service addresses items by handle; when it answers with an absolute
// animation URL the file is fetched into the local outputs directory.
type HTTPRenderer struct {
	URL    string
	Files  Files
	client *http.Client
}

// NewHTTPRenderer returns a renderer posting to endpoint.
func NewHTTPRenderer(endpoint string, files Files, opts HTTPOptions) *HTTPRenderer {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 10 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPRenderer{URL: endpoint, Files: files, client: client}
}

// renderRequest is the JSON body understood by the animation service.
type renderRequest struct {
	FileID               string   `json:"file_id"`
	AnimationMode        string   `json:"animation_mode"`
	DrawingDuration      float64  `json:"drawing_duration"`
	FPS                  int      `json:"fps"`
	StyleChoice          *int     `json:"style_choice,omitempty"`
	RevealDuration       *float64 `json:"reveal_duration,omitempty"`
	RevealAreaMultiplier *float64 `json:"reveal_area_multiplier,omitempty"`
	LineColor            *string  `json:"line_color,omitempty"`
	BackgroundColor      *string  `json:"background_color,omitempty"`
}

type renderResponse struct {
	Success           bool   `json:"success"`
	AnimationURL      string `json:"animation_url"`
	AnimationFilename string `json:"animation_filename"`
	Error             string `json:"error"`
}

func newRenderRequest(handle string, cfg models.EffectiveConfig) (renderRequest, error) {
	if err := cfg.CheckUnion(); err != nil {
		return renderRequest{}, err
	}
	req := renderRequest{
		FileID:          handle,
		AnimationMode:   string(cfg.Mode),
		DrawingDuration: cfg.DrawingDuration,
		FPS:             cfg.FPS,
	}
	if full := cfg.Full; full != nil {
		req.StyleChoice = &full.StyleChoice
		req.RevealDuration = &full.RevealDuration
		req.RevealAreaMultiplier = &full.RevealAreaMultiplier
	}
	if colors := cfg.DrawingOnly; colors != nil {
		req.LineColor = &colors.LineColor
		req.BackgroundColor = &colors.BackgroundColor
	}
	return req, nil
}

func (h *HTTPRenderer) Render(ctx context.Context, handle string, cfg models.EffectiveConfig) (models.ArtifactRef, error) {
	body, err := newRenderRequest(handle, cfg)
	if err != nil {
		return models.ArtifactRef{}, err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return models.ArtifactRef{}, fmt.Errorf("encode render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return models.ArtifactRef{}, fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Speedraw/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return models.ArtifactRef{}, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	var out renderResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return models.ArtifactRef{}, fmt.Errorf("renderer returned status %d with unreadable body: %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Success {
		if out.Error == "" {
			out.Error = fmt.Sprintf("renderer returned status %d", resp.StatusCode)
		}
		return models.ArtifactRef{}, errors.New(out.Error)
	}

	filename := out.AnimationFilename
	if filename == "" {
		filename = filepath.Base(h.Files.AnimationPath(handle))
	}
	if u, err := url.Parse(out.AnimationURL); err == nil && u.IsAbs() {
		if err := h.fetch(ctx, u.String(), h.Files.AnimationPath(handle)); err != nil {
			return models.ArtifactRef{}, err
		}
		filename = filepath.Base(h.Files.AnimationPath(handle))
	}

	logger.Debugf("Remote renderer produced %s for %s", filename, handle)
	return models.ArtifactRef{URL: "/download/" + filename, Filename: filename}, nil
}

// fetch downloads a remote animation to dest.
func (h *HTTPRenderer) fetch(ctx context.Context, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("download animation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download animation: status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("download animation: %w", err)
	}
	return f.Close()
}
