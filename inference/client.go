// Package inference calls the line art model service.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 32 << 20

// Client posts images to an inference endpoint and returns line art bytes.
type Client struct {
	URL    string
	client *http.Client
}

// NewClient returns a client with the given request timeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Client{URL: endpoint, client: &http.Client{Timeout: timeout}}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

type inferResponse struct {
	LineArtData string `json:"line_art_data"`
	Error       string `json:"error"`
}

// Infer uploads payload as multipart field "image". The service may answer
// with raw image bytes or with JSON carrying base64 line_art_data, optionally
// as a data URL.
func (c *Client) Infer(ctx context.Context, payload []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "image")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("create inference request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", "Speedraw/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}

	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if isJSON {
			var out inferResponse
			if json.Unmarshal(data, &out) == nil && out.Error != "" {
				return nil, errors.New(out.Error)
			}
		}
		return nil, fmt.Errorf("inference service returned status %d", resp.StatusCode)
	}

	if !isJSON {
		if len(data) == 0 {
			return nil, errors.New("inference service returned no line art")
		}
		return data, nil
	}

	var out inferResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	return DecodeLineArt(out.LineArtData)
}

// DecodeLineArt decodes base64 line art, stripping a data URL prefix.
func DecodeLineArt(data string) ([]byte, error) {
	if data == "" {
		return nil, errors.New("line art data missing")
	}
	if strings.HasPrefix(data, "data:") {
		_, encoded, ok := strings.Cut(data, ",")
		if !ok {
			return nil, errors.New("malformed data URL")
		}
		data = encoded
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode line art: %w", err)
	}
	return decoded, nil
}
