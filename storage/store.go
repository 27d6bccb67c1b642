// Package storage keeps item files on disk: uploaded originals, line art and
// rendered animations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"speedraw/config"
	"speedraw/logger"
	"speedraw/models"
)

var (
	ErrEmptyPayload     = errors.New("empty file")
	ErrTooLarge         = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrArtifactNotFound = errors.New("artifact not found")
)

// Store writes originals to UploadsDir and derived files to OutputsDir.
type Store struct {
	UploadsDir string
	OutputsDir string
	MaxBytes   int64

	newHandle func() string
}

// NewStore creates both directories if needed.
func NewStore(uploadsDir, outputsDir string) (*Store, error) {
	for _, dir := range []string{uploadsDir, outputsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{
		UploadsDir: uploadsDir,
		OutputsDir: outputsDir,
		MaxBytes:   config.MaxUploadBytes,
		newHandle:  uuid.NewString,
	}, nil
}

// CheckUpload validates an item before it is accepted into a batch.
func CheckUpload(name string, size, maxBytes int64) error {
	if size == 0 {
		return fmt.Errorf("%s: %w", name, ErrEmptyPayload)
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%s: %w", name, ErrTooLarge)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if !config.AllowedExtensions[ext] {
		return fmt.Errorf("%s: %w", name, ErrUnsupportedType)
	}
	return nil
}

// Upload stores payload as {handle}_original.{ext} and returns the new handle.
func (s *Store) Upload(ctx context.Context, name string, payload []byte) (string, error) {
	if err := CheckUpload(name, int64(len(payload)), s.MaxBytes); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	handle := s.newHandle()
	ext := strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.UploadsDir, handle+"_original"+ext)
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	logger.Debugf("Stored %s as %s", name, path)
	return handle, nil
}

// PersistLineArt writes {handle}_line_art.jpg.
func (s *Store) PersistLineArt(ctx context.Context, handle string, lineArt []byte) error {
	if len(lineArt) == 0 {
		return fmt.Errorf("line art for %s: %w", handle, ErrEmptyPayload)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(s.LineArtPath(handle), lineArt, 0644); err != nil {
		return fmt.Errorf("save line art for %s: %w", handle, err)
	}
	return nil
}

// OriginalPath finds the uploaded original for handle.
func (s *Store) OriginalPath(handle string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.UploadsDir, handle+"_original.*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("original for %s: %w", handle, os.ErrNotExist)
	}
	return matches[0], nil
}

// LineArtPath is where the line art for handle lives.
func (s *Store) LineArtPath(handle string) string {
	return filepath.Join(s.OutputsDir, handle+"_line_art.jpg")
}

// AnimationPath is where the rendered animation for handle lives.
func (s *Store) AnimationPath(handle string) string {
	return filepath.Join(s.OutputsDir, AnimationFilename(handle))
}

// AnimationFilename is the suggested download name for handle's animation.
func AnimationFilename(handle string) string {
	return handle + "_animation.mp4"
}

// DownloadRef is the artifact reference served by the download route.
func DownloadRef(handle string) models.ArtifactRef {
	filename := AnimationFilename(handle)
	return models.ArtifactRef{URL: "/download/" + filename, Filename: filename}
}

// OutputPath resolves a bare output filename, rejecting anything with a
// directory component.
func (s *Store) OutputPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("%q: %w", filename, ErrArtifactNotFound)
	}
	return filepath.Join(s.OutputsDir, filename), nil
}

// Open opens the file behind ref from the outputs directory.
func (s *Store) Open(ref models.ArtifactRef) (io.ReadCloser, error) {
	path, err := s.OutputPath(ref.Filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref.Filename, ErrArtifactNotFound)
	}
	return f, err
}

// Remove deletes every file belonging to handle.
func (s *Store) Remove(handle string) error {
	var errs []error
	if original, err := s.OriginalPath(handle); err == nil {
		errs = append(errs, removeIfExists(original))
	}
	errs = append(errs, removeIfExists(s.LineArtPath(handle)), removeIfExists(s.AnimationPath(handle)))
	return errors.Join(errs...)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
