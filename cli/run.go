package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"speedraw/config"
	"speedraw/encoder"
	"speedraw/inference"
	"speedraw/logger"
	"speedraw/models"
	"speedraw/pipeline"
	"speedraw/queue"
	"speedraw/results"
	"speedraw/settings"
	"speedraw/storage"
)

// runManifest is the YAML file describing a local batch.
type runManifest struct {
	// Defaults replaces the defaults file for this run when set.
	Defaults   *models.EffectiveConfig `yaml:"defaults"`
	ApplyToAll bool                    `yaml:"apply_to_all"`
	Items      []runItem               `yaml:"items"`
}

type runItem struct {
	Path     string                 `yaml:"path"`
	Name     string                 `yaml:"name"`
	Override *models.OverrideConfig `yaml:"override"`
}

// loadRunManifest reads the manifest at path and the images it lists.
// Relative image paths are resolved against the manifest's directory.
func loadRunManifest(path string) (runManifest, []models.Item, map[int]models.OverrideConfig, error) {
	var m runManifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, nil, nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, nil, nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Items) == 0 {
		return m, nil, nil, errors.New("manifest lists no items")
	}
	if m.Defaults != nil {
		if err := settings.ValidateDefaults(*m.Defaults); err != nil {
			return m, nil, nil, fmt.Errorf("defaults: %w", err)
		}
	}

	base := filepath.Dir(path)
	items := make([]models.Item, len(m.Items))
	overrides := map[int]models.OverrideConfig{}
	for i, it := range m.Items {
		p := it.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		payload, err := os.ReadFile(p)
		if err != nil {
			return m, nil, nil, fmt.Errorf("item %d: %w", i, err)
		}
		name := it.Name
		if name == "" {
			name = filepath.Base(p)
		}
		if err := storage.CheckUpload(name, int64(len(payload)), config.MaxUploadBytes); err != nil {
			return m, nil, nil, fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = models.Item{Index: i, Name: name, Payload: payload}
		if it.Override != nil {
			overrides[i] = *it.Override
		}
	}
	if m.ApplyToAll {
		overrides = settings.CopyFirstToAll(overrides, len(items))
	}
	if err := settings.ValidateOverrides(overrides, len(items)); err != nil {
		return m, nil, nil, err
	}
	return m, items, overrides, nil
}

func outcomeRows(result models.BatchResult) [][]string {
	rows := make([][]string, 0, len(result.Outcomes))
	for _, out := range result.Outcomes {
		status, detail := "ok", ""
		if out.Artifact != nil {
			detail = out.Artifact.URL
		}
		if !out.Success {
			status = "failed"
			detail = out.Error
			if out.Stage != "" {
				detail = out.Stage + ": " + out.Error
			}
		}
		rows = append(rows, []string{strconv.Itoa(out.ItemIndex), out.ItemName, status, detail})
	}
	return rows
}

func newRunCmd() *cobra.Command {
	var archiveDir string

	cmd := &cobra.Command{
		Use:   "run <manifest.yaml>",
		Short: "Process a batch of local images without the HTTP service",
		Example: `  # manifest.yaml
  #   items:
  #     - path: portraits/ada.png
  #     - path: portraits/alan.jpg
  #       override: {animation_mode: drawing_only, line_color: "#202020"}
  speedraw run manifest.yaml --zip ./out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, items, overrides, err := loadRunManifest(args[0])
			if err != nil {
				return err
			}

			store, err := storage.NewStore(config.GetUploadsDir(), config.GetOutputsDir())
			if err != nil {
				return err
			}
			encoder.RegisterDefaults(config.GetRenderCommand(), config.GetRenderURL(), encoder.HTTPOptions{Timeout: config.GetRenderTimeout()})
			renderer, err := encoder.Get(config.GetRendererName(), store)
			if err != nil {
				return err
			}

			var defaults queue.DefaultsSource = config.NewDefaultsFile(config.GetDefaultsFilePath())
			if m.Defaults != nil {
				defaults = queue.StaticDefaults(*m.Defaults)
			}

			runner := pipeline.NewRunner(pipeline.Collaborators{
				Uploader:   store,
				Inferencer: inference.NewClient(config.GetInferenceURL(), config.GetInferenceTimeout()),
				LineArt:    store,
				Renderer:   renderer,
			})
			return runLocal(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), queue.Context{
				Items:     items,
				Defaults:  defaults,
				Overrides: overrides,
			}, runner, store.Open, archiveDir)
		},
	}

	cmd.Flags().StringVar(&archiveDir, "zip", "", "Write a ZIP of the animations into this directory")

	return cmd
}

// runLocal runs the batch, prints a summary table and optionally archives
// the animations. It fails only when no item succeeded.
func runLocal(ctx context.Context, out, progress io.Writer, batch queue.Context, runner queue.ItemRunner, open results.OpenFunc, archiveDir string) error {
	result := queue.RunBatch(ctx, batch, runner, queue.Options{
		OnProgress: func(completed, total int) {
			fmt.Fprintf(progress, "[%d/%d] %s done\n", completed, total, batch.Items[completed-1].Name)
		},
	})

	fmt.Fprintln(out, renderTable([]string{"#", "Item", "Status", "Animation / error"}, outcomeRows(result),
		[]columnAlignment{alignRight}))
	summary := results.Summarize(result)
	fmt.Fprintf(out, "%d of %d items succeeded", summary.SuccessCount, summary.TotalCount)
	if summary.Cancelled {
		fmt.Fprint(out, " (cancelled)")
	}
	fmt.Fprintln(out)

	if archiveDir != "" && summary.SuccessCount > 0 {
		if err := os.MkdirAll(archiveDir, 0755); err != nil {
			return err
		}
		path := filepath.Join(archiveDir, results.ArchiveName(time.Now()))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		n, err := results.WriteArchive(f, results.CollectArtifactRefs(result), open)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
			return fmt.Errorf("write archive: %w", err)
		}
		logger.Infof("Archived %d animations to %s", n, path)
		fmt.Fprintf(out, "Archive: %s\n", path)
	}

	if summary.TotalCount > 0 && summary.SuccessCount == 0 {
		return errors.New("no item succeeded")
	}
	return nil
}
