package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service stores images in Amazon S3 (or a compatible API).
type S3Service struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	keyPrefix string
	region    string
	baseURL   string
}

// NewS3Service uploads under bucket/keyPrefix. baseURL overrides the public
// URL prefix for buckets fronted by a CDN or a custom endpoint; when empty
// the standard S3 URL for the region is used.
func NewS3Service(client *s3.Client, bucket, keyPrefix, region, baseURL string) *S3Service {
	return &S3Service{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		region:    region,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *S3Service) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("storage bucket is required")
	}

	key := name
	if s.keyPrefix != "" {
		key = path.Join(s.keyPrefix, name)
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", key, err)
	}

	if s.baseURL != "" {
		return s.baseURL + "/" + key, nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

var _ Service = (*S3Service)(nil)
