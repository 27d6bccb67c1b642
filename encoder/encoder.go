// Package encoder renders speed drawing animations from an uploaded image and
// its line art.
package encoder

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"sync"

	"speedraw/logger"
	"speedraw/models"
)

// Files locates the inputs and output of a render.
type Files interface {
	OriginalPath(handle string) (string, error)
	LineArtPath(handle string) string
	AnimationPath(handle string) string
}

// Renderer produces the animation for handle and returns its reference.
type Renderer interface {
	Render(ctx context.Context, handle string, cfg models.EffectiveConfig) (models.ArtifactRef, error)
}

// Factory builds a renderer bound to a file layout.
type Factory func(files Files) Renderer

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a renderer factory. When cmdName is non-empty the factory is
// only registered if that command exists in PATH.
func Register(name, cmdName string, factory Factory) bool {
	if cmdName != "" {
		if _, err := exec.LookPath(cmdName); err != nil {
			logger.Warnf("renderer [%s] skipped: command '%s' not found in PATH", name, cmdName)
			return false
		}
	}
	registryMu.Lock()
	registry[name] = factory
	registryMu.Unlock()
	logger.Debugf("renderer [%s] registered", name)
	return true
}

// Get builds the named renderer.
func Get(name string, files Files) (Renderer, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("renderer %s not available (registered: %v)", name, Names())
	}
	return factory(files), nil
}

// Names lists the registered renderers.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaults registers the command renderer (if its binary is
// installed) and the HTTP renderer.
func RegisterDefaults(command, url string, opts HTTPOptions) {
	Register("command", command, func(files Files) Renderer {
		return NewCommandRenderer(command, files)
	})
	Register("http", "", func(files Files) Renderer {
		return NewHTTPRenderer(url, files, opts)
	})
}
