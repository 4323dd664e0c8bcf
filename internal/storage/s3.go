package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Storage struct {
	bucket   string
	prefix   string
	uploader *s3manager.Uploader
}

// NewS3Storage uses the default AWS credential chain
func NewS3Storage(config Config) (*S3Storage, error) {
	if config.Bucket == "" {
		return nil, errors.New("s3 bucket is empty")
	}
	awsConfig := aws.NewConfig()
	if config.Region != "" {
		awsConfig = awsConfig.WithRegion(config.Region)
	}
	if config.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(config.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &S3Storage{
		bucket:   config.Bucket,
		prefix:   config.Prefix,
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// RemotePath returns the object key for name
func (s *S3Storage) RemotePath(name string) string {
	return path.Join(s.prefix, name)
}

// WriteImage uploads src and returns its s3:// location
func (s *S3Storage) WriteImage(ctx context.Context, src, name string) (string, error) {
	data, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer data.Close()

	key := s.RemotePath(name)
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String("image/jpeg"),
		Body:        data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
