// Package pipelinetest provides in-memory pipeline collaborators for tests.
package pipelinetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"speedraw/models"
	"speedraw/pipeline"
)

// Fake implements every pipeline collaborator in memory. Failures are keyed
// by item name; calls are recorded in order as "stage:name".
type Fake struct {
	UploadFailures  map[string]string
	InferFailures   map[string]string
	PersistFailures map[string]string
	RenderFailures  map[string]string

	// UploadErr, when set, is returned by every upload as is.
	UploadErr error

	// OnUpload, when set, runs before every upload.
	OnUpload func(name string)

	mu      sync.Mutex
	calls   []string
	names   map[string]string // handle -> item name
	configs map[string]models.EffectiveConfig
	lineArt map[string][]byte
	next    int
}

// New returns an empty fake with no failures.
func New() *Fake {
	return &Fake{
		UploadFailures:  map[string]string{},
		InferFailures:   map[string]string{},
		PersistFailures: map[string]string{},
		RenderFailures:  map[string]string{},
		names:           map[string]string{},
		configs:         map[string]models.EffectiveConfig{},
		lineArt:         map[string][]byte{},
	}
}

// Collaborators wires the fake into a pipeline.Collaborators value.
func (f *Fake) Collaborators() pipeline.Collaborators {
	return pipeline.Collaborators{Uploader: f, Inferencer: f, LineArt: f, Renderer: f}
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls returns the recorded calls in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ConfigFor returns the configuration the named item was rendered with.
func (f *Fake) ConfigFor(name string) (models.EffectiveConfig, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for handle, n := range f.names {
		if n == name {
			cfg, ok := f.configs[handle]
			return cfg, ok
		}
	}
	return models.EffectiveConfig{}, false
}

func (f *Fake) Upload(_ context.Context, name string, payload []byte) (string, error) {
	if f.OnUpload != nil {
		f.OnUpload(name)
	}
	f.record("upload:" + name)
	if f.UploadErr != nil {
		return "", f.UploadErr
	}
	if msg, ok := f.UploadFailures[name]; ok {
		return "", errors.New(msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	handle := fmt.Sprintf("h%d", f.next)
	f.next++
	f.names[handle] = name
	return handle, nil
}

func (f *Fake) nameOf(handle string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[handle]
}

// Infer keys failures by payload, which tests set to the item name.
func (f *Fake) Infer(_ context.Context, payload []byte) ([]byte, error) {
	name := string(payload)
	f.record("infer:" + name)
	if msg, ok := f.InferFailures[name]; ok {
		return nil, errors.New(msg)
	}
	return []byte("lineart:" + name), nil
}

func (f *Fake) PersistLineArt(_ context.Context, handle string, lineArt []byte) error {
	name := f.nameOf(handle)
	f.record("persist:" + name)
	if msg, ok := f.PersistFailures[name]; ok {
		return errors.New(msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lineArt[handle] = lineArt
	return nil
}

func (f *Fake) Render(_ context.Context, handle string, cfg models.EffectiveConfig) (models.ArtifactRef, error) {
	name := f.nameOf(handle)
	f.record("render:" + name)
	if msg, ok := f.RenderFailures[name]; ok {
		return models.ArtifactRef{}, errors.New(msg)
	}
	f.mu.Lock()
	f.configs[handle] = cfg
	f.mu.Unlock()
	filename := handle + "_animation.mp4"
	return models.ArtifactRef{URL: "/download/" + filename, Filename: filename}, nil
}

// Items builds items whose payload equals their name.
func Items(names ...string) []models.Item {
	items := make([]models.Item, len(names))
	for i, n := range names {
		items[i] = models.Item{Index: i, Name: n, Payload: []byte(n)}
	}
	return items
}
