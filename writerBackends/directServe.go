package writerbackends

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"speedraw/logger"
)

// UploadToDirectServe writes the file below baseDir, which the HTTP server
// exposes under /files/. The returned location is that URL path.
func UploadToDirectServe(ctx context.Context, accessInfo map[string]string, reader io.Reader) (string, error) {
	baseDir := accessInfo["baseDir"]
	if baseDir == "" {
		return "", fmt.Errorf("missing baseDir")
	}
	name, err := objectName(accessInfo)
	if err != nil {
		return "", err
	}
	if strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid path %q", name)
	}

	fullPath := filepath.Join(baseDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return "", fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}

	logger.Infof("Successfully saved '%s' to '%s'", name, fullPath)
	return "/files/" + name, nil
}
