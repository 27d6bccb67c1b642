package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"speedraw/models"
	writerbackends "speedraw/writerBackends"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "uploads"), filepath.Join(dir, "outputs"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	n := 0
	s.newHandle = func() string {
		n++
		return "handle" + string(rune('0'+n))
	}
	return s
}

func TestUploadAndLineArt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	handle, err := s.Upload(ctx, "Cat.PNG", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	original, err := s.OriginalPath(handle)
	if err != nil {
		t.Fatalf("OriginalPath: %v", err)
	}
	if filepath.Base(original) != handle+"_original.png" {
		t.Errorf("Unexpected original name %s", original)
	}

	if err := s.PersistLineArt(ctx, handle, []byte("jpg-bytes")); err != nil {
		t.Fatalf("PersistLineArt: %v", err)
	}
	data, err := os.ReadFile(s.LineArtPath(handle))
	if err != nil || string(data) != "jpg-bytes" {
		t.Errorf("Unexpected line art %q, %v", data, err)
	}

	if err := s.Remove(handle); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.OriginalPath(handle); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected original to be removed, got %v", err)
	}
}

func TestUploadRejects(t *testing.T) {
	s := newTestStore(t)
	s.MaxBytes = 4
	ctx := context.Background()

	cases := []struct {
		name    string
		payload []byte
		want    error
	}{
		{"a.png", nil, ErrEmptyPayload},
		{"a.png", []byte("12345"), ErrTooLarge},
		{"a.tiff", []byte("1"), ErrUnsupportedType},
		{"noext", []byte("1"), ErrUnsupportedType},
	}
	for _, tc := range cases {
		if _, err := s.Upload(ctx, tc.name, tc.payload); !errors.Is(err, tc.want) {
			t.Errorf("Upload(%s) = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestOpenArtifact(t *testing.T) {
	s := newTestStore(t)
	ref := DownloadRef("h1")
	if ref.URL != "/download/h1_animation.mp4" {
		t.Errorf("Unexpected URL %s", ref.URL)
	}
	if err := os.WriteFile(s.AnimationPath("h1"), []byte("mp4"), 0644); err != nil {
		t.Fatal(err)
	}

	rc, err := s.Open(ref)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "mp4" {
		t.Errorf("Unexpected content %q", data)
	}

	for _, name := range []string{"../secret", "missing.mp4", ".hidden", ""} {
		if _, err := s.Open(models.ArtifactRef{Filename: name}); !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("Open(%q) = %v, want ErrArtifactNotFound", name, err)
		}
	}
}

type fileRenderer struct{ store *Store }

func (f fileRenderer) Render(_ context.Context, handle string, _ models.EffectiveConfig) (models.ArtifactRef, error) {
	if err := os.WriteFile(f.store.AnimationPath(handle), []byte("mp4"), 0644); err != nil {
		return models.ArtifactRef{}, err
	}
	return DownloadRef(handle), nil
}

func TestPublishRendered(t *testing.T) {
	s := newTestStore(t)
	inner := fileRenderer{store: s}

	if got := PublishRendered(inner, s, Target{Backend: "local"}); got != inner {
		t.Error("Disabled target should return the inner renderer")
	}

	serveDir := t.TempDir()
	r := PublishRendered(inner, s, Target{
		Backend:    writerbackends.DirectServe,
		AccessInfo: map[string]string{"baseDir": serveDir},
		Folder:     "batch-1",
	})
	ref, err := r.Render(context.Background(), "h1", models.BuiltinDefaults())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if ref.URL != "/files/batch-1/h1_animation.mp4" || ref.Filename != "h1_animation.mp4" {
		t.Errorf("Unexpected ref %+v", ref)
	}
	if _, err := os.Stat(filepath.Join(serveDir, "batch-1", "h1_animation.mp4")); err != nil {
		t.Errorf("Published file missing: %v", err)
	}

	broken := PublishRendered(inner, s, Target{Backend: "ftp"})
	if _, err := broken.Render(context.Background(), "h2", models.BuiltinDefaults()); err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("Expected unknown backend error, got %v", err)
	}
}
