package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"statement-worker/internal/config"
	"statement-worker/internal/domain"
)

var _ domain.ObjectStore = (*S3Store)(nil)

// S3Store writes result objects to S3-compatible object storage.
// It uses the AWS SDK v2 with path-style addressing so that Hetzner,
// MinIO, and similar S3-compatible endpoints work out of the box.
type S3Store struct {
	client *s3.Client
}

// NewS3Store creates a store from static credentials in the config.
func NewS3Store(cfg *config.Config) (*S3Store, error) {
	if !cfg.HasS3Config() {
		return nil, fmt.Errorf("S3 config is incomplete")
	}

	endpoint := fmt.Sprintf("https://%s", *cfg.S3Endpoint)

	client := s3.New(s3.Options{
		Region: *cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			*cfg.S3KeyID, *cfg.S3Secret, "",
		),
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
	})

	return &S3Store{client: client}, nil
}

// WriteBytes uploads data to {bucket}/{key}, where the bucket is the
// leading path segment.
func (s *S3Store) WriteBytes(ctx context.Context, path string, data []byte) error {
	bucket, key, err := splitPath(path)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", path, err)
	}
	return nil
}
