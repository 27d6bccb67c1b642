package writerbackends

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"speedraw/logger"
)

// decodeServiceAccount accepts the key JSON either raw or base64 encoded.
func decodeServiceAccount(value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("missing credentialsJSON")
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return []byte(value), nil
}

// UploadToGCSWithJSON streams the file to a Cloud Storage object using a
// service account key.
func UploadToGCSWithJSON(ctx context.Context, accessInfo map[string]string, reader io.Reader) (string, error) {
	bucketName := accessInfo["bucket"]
	if bucketName == "" {
		return "", fmt.Errorf("missing bucket")
	}
	objectPath, err := objectName(accessInfo)
	if err != nil {
		return "", err
	}
	credentialsJSON, err := decodeServiceAccount(accessInfo["credentialsJSON"])
	if err != nil {
		return "", err
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return "", fmt.Errorf("storage.NewClient: %w", err)
	}
	defer client.Close()

	wc := client.Bucket(bucketName).Object(objectPath).NewWriter(ctx)
	wc.ContentType = contentType(objectPath)

	if _, err = io.Copy(wc, reader); err != nil {
		wc.Close()
		return "", fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", objectPath, bucketName)
	return fmt.Sprintf("gs://%s/%s", bucketName, objectPath), nil
}
