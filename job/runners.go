package job

import (
	"fmt"

	"speedraw/credentials"
	"speedraw/pipeline"
	"speedraw/queue"
	"speedraw/storage"
)

// Services are the collaborators shared by every batch.
type Services struct {
	Store      *storage.Store
	Inferencer pipeline.Inferencer
	Renderer   pipeline.Renderer
	// Target publishes animations for batches whose grant names no storage key.
	Target storage.Target
}

// NewRunnerFactory builds runners that publish through the credentials named
// by a batch's grant, falling back to the service target.
func NewRunnerFactory(svc Services) RunnerFactory {
	return func(m Manifest) (queue.ItemRunner, error) {
		target := svc.Target
		if key := m.Grant.StorageKey; key != "" {
			entry, err := credentials.GetCredentials(key)
			if err != nil {
				return nil, fmt.Errorf("storage key %s: %w", key, err)
			}
			target = storage.Target{Backend: entry.Backend, AccessInfo: entry.AccessInfo}
		}
		target.Folder = m.Grant.SubDir
		if target.Folder == "" {
			target.Folder = m.BatchID
		}

		return pipeline.NewRunner(pipeline.Collaborators{
			Uploader:   svc.Store,
			Inferencer: svc.Inferencer,
			LineArt:    svc.Store,
			Renderer:   storage.PublishRendered(svc.Renderer, svc.Store, target),
		}), nil
	}
}
