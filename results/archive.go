package results

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"time"

	"speedraw/logger"
	"speedraw/models"
)

// ErrNoArtifacts is returned when there is nothing to package.
var ErrNoArtifacts = errors.New("no animations to package")

// OpenFunc opens the bytes behind an artifact reference.
type OpenFunc func(ref models.ArtifactRef) (io.ReadCloser, error)

// ArchiveName returns the download name for a bulk archive created at now.
func ArchiveName(now time.Time) string {
	return "speed_drawing_animations_" + now.Format("20060102_150405") + ".zip"
}

// WriteArchive writes a ZIP containing every ref to w. Artifacts that cannot
// be opened are skipped; an archive with no entries is an error.
func WriteArchive(w io.Writer, refs []models.ArtifactRef, open OpenFunc) (int, error) {
	if len(refs) == 0 {
		return 0, ErrNoArtifacts
	}

	zw := zip.NewWriter(w)
	written := 0
	used := make(map[string]bool, len(refs))
	for _, ref := range refs {
		rc, err := open(ref)
		if err != nil {
			logger.Warnf("Skipping %s in archive: %v", ref.Filename, err)
			continue
		}

		name := entryName(ref.Filename, used)
		used[name] = true

		entry, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: time.Now()})
		if err == nil {
			_, err = io.Copy(entry, rc)
		}
		rc.Close()
		if err != nil {
			zw.Close()
			return written, fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finish archive: %w", err)
	}
	if written == 0 {
		return 0, ErrNoArtifacts
	}
	return written, nil
}

// entryName returns filename, or the first "N_filename" not yet in used.
func entryName(filename string, used map[string]bool) string {
	if !used[filename] {
		return filename
	}
	for n := 1; ; n++ {
		if name := fmt.Sprintf("%d_%s", n, filename); !used[name] {
			return name
		}
	}
}
