package writerbackends

import (
	"context"
	"fmt"
	"io"

	"speedraw/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// newS3Client builds a client from static keys. An "endpoint" entry points
// the client at an S3 compatible service and switches to path style.
func newS3Client(accessInfo map[string]string) (*s3.Client, error) {
	if accessInfo["accessKey"] == "" || accessInfo["secretKey"] == "" {
		return nil, fmt.Errorf("missing accessKey or secretKey")
	}
	region := accessInfo["region"]
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessInfo["accessKey"], accessInfo["secretKey"], ""),
	}
	if endpoint := accessInfo["endpoint"]; endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts), nil
}

// UploadToS3WithCreds streams the file to bucket/folder/filename.
func UploadToS3WithCreds(ctx context.Context, accessInfo map[string]string, reader io.Reader) (string, error) {
	bucket := accessInfo["bucket"]
	if bucket == "" {
		return "", fmt.Errorf("missing bucket")
	}
	key, err := objectName(accessInfo)
	if err != nil {
		return "", err
	}
	client, err := newS3Client(accessInfo)
	if err != nil {
		return "", err
	}

	uploader := manager.NewUploader(client)
	out, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, bucket, err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", key, bucket)
	if out.Location != "" {
		return out.Location, nil
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
