package writerbackends

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
)

// Backend names accepted by WriteAnimation.
const (
	DirectServe = "directServe"
	S3          = "s3"
	GCS         = "gcs"
	SFTP        = "sftp"
)

// Supported reports whether backendType names a known backend.
func Supported(backendType string) bool {
	switch backendType {
	case DirectServe, S3, GCS, SFTP:
		return true
	}
	return false
}

// WriteAnimation publishes one rendered file to the given backend and returns
// where it ended up. accessInfo always carries "filename" and may carry
// "folder"; the remaining keys are backend specific.
func WriteAnimation(ctx context.Context, accessInfo map[string]string, reader io.Reader, backendType string) (string, error) {
	switch backendType {
	case DirectServe:
		loc, err := UploadToDirectServe(ctx, accessInfo, reader)
		if err != nil {
			return "", fmt.Errorf("failed to upload to direct serve: %w", err)
		}
		return loc, nil
	case S3:
		loc, err := UploadToS3WithCreds(ctx, accessInfo, reader)
		if err != nil {
			return "", fmt.Errorf("failed to upload to S3: %w", err)
		}
		return loc, nil
	case GCS:
		loc, err := UploadToGCSWithJSON(ctx, accessInfo, reader)
		if err != nil {
			return "", fmt.Errorf("failed to upload to GCS: %w", err)
		}
		return loc, nil
	case SFTP:
		loc, err := UploadToSFTPWithCreds(ctx, accessInfo, reader)
		if err != nil {
			return "", fmt.Errorf("failed to upload to SFTP: %w", err)
		}
		return loc, nil
	default:
		return "", fmt.Errorf("unknown backend type: %s", backendType)
	}
}

// objectName joins the optional folder and the filename with forward slashes.
func objectName(accessInfo map[string]string) (string, error) {
	filename := accessInfo["filename"]
	if filename == "" || filename != path.Base(filename) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	if folder := accessInfo["folder"]; folder != "" {
		return path.Join(folder, filename), nil
	}
	return filename, nil
}

func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
