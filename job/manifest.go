package job

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"speedraw/models"
)

const manifestFile = "manifest.json"

// ManifestItem names one image of a batch and the file holding its bytes.
type ManifestItem struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// Manifest is everything needed to run or resume a batch.
type Manifest struct {
	BatchID   string                        `json:"batch_id"`
	Subject   string                        `json:"subject,omitempty"`
	Items     []ManifestItem                `json:"items"`
	Defaults  *models.EffectiveConfig       `json:"defaults,omitempty"` // nil uses the service defaults
	Overrides map[int]models.OverrideConfig `json:"overrides,omitempty"`
	Grant     models.BatchGrant             `json:"grant"`
	CreatedAt time.Time                     `json:"created_at"`
}

// WriteManifest writes the manifest to manifest.json in the given directory
func WriteManifest(dir string, m Manifest) error {
	path := filepath.Join(dir, manifestFile)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// ReadManifest reads the manifest from manifest.json in the given directory
func ReadManifest(dir string) (Manifest, error) {
	file, err := os.Open(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to open manifest file: %w", err)
	}
	defer file.Close()

	var m Manifest
	if err := json.NewDecoder(file).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return m, nil
}

// itemFile names the stored payload of item i, keeping the original extension.
func itemFile(i int, name string) string {
	return fmt.Sprintf("item_%03d%s", i, strings.ToLower(filepath.Ext(name)))
}

// LoadItems reads every item payload of the manifest from dir.
func LoadItems(dir string, m Manifest) ([]models.Item, error) {
	items := make([]models.Item, len(m.Items))
	for i, mi := range m.Items {
		if mi.File != filepath.Base(mi.File) {
			return nil, fmt.Errorf("item %d has invalid file %q", i, mi.File)
		}
		payload, err := os.ReadFile(filepath.Join(dir, mi.File))
		if err != nil {
			return nil, fmt.Errorf("failed to read item %d (%s): %w", i, mi.Name, err)
		}
		items[i] = models.Item{Index: i, Name: mi.Name, Payload: payload}
	}
	return items, nil
}
