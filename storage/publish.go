package storage

import (
	"context"
	"fmt"
	"maps"
	"os"

	"speedraw/models"
	"speedraw/pipeline"
	writerbackends "speedraw/writerBackends"
)

// Target names a publishing backend for rendered animations.
type Target struct {
	Backend    string
	AccessInfo map[string]string
	Folder     string
}

// Enabled reports whether animations should leave the outputs directory.
func (t Target) Enabled() bool {
	return t.Backend != "" && t.Backend != "local"
}

// publishingRenderer copies each rendered animation to a backend and
// reports the published location as the artifact URL.
type publishingRenderer struct {
	inner  pipeline.Renderer
	store  *Store
	target Target
}

// PublishRendered wraps inner so successful renders are also written to
// target. A disabled target returns inner unchanged.
func PublishRendered(inner pipeline.Renderer, store *Store, target Target) pipeline.Renderer {
	if !target.Enabled() {
		return inner
	}
	return &publishingRenderer{inner: inner, store: store, target: target}
}

func (p *publishingRenderer) Render(ctx context.Context, handle string, cfg models.EffectiveConfig) (models.ArtifactRef, error) {
	ref, err := p.inner.Render(ctx, handle, cfg)
	if err != nil {
		return ref, err
	}

	f, err := os.Open(p.store.AnimationPath(handle))
	if err != nil {
		return models.ArtifactRef{}, fmt.Errorf("open rendered animation: %w", err)
	}
	defer f.Close()

	info := maps.Clone(p.target.AccessInfo)
	if info == nil {
		info = map[string]string{}
	}
	info["filename"] = ref.Filename
	info["folder"] = p.target.Folder

	location, err := writerbackends.WriteAnimation(ctx, info, f, p.target.Backend)
	if err != nil {
		return models.ArtifactRef{}, fmt.Errorf("publish %s: %w", ref.Filename, err)
	}
	ref.URL = location
	return ref, nil
}
