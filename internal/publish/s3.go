package publish

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes an S3-compatible bucket (AWS, R2, MinIO, ...).
type S3Config struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint" validate:"omitempty,url"`
	Prefix          string `toml:"prefix"`
	AccessKeyID     string `toml:"access_key_id" validate:"required_with=Bucket"`
	SecretAccessKey string `toml:"secret_access_key" validate:"required_with=Bucket"`
}

// IsConfigured reports whether a bucket is set.
func (c S3Config) IsConfigured() bool {
	return c.Bucket != ""
}

// objectPutter is the part of *s3.Client the store uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads previews to a bucket.
type S3Store struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Store creates a store with static credentials. A custom endpoint
// switches to path-style addressing, which S3-compatible services expect.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("S3 bucket is not configured")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = creds
			o.Region = region
		},
	}
	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client: s3.New(s3.Options{}, options...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ObjectKey returns the full object key for a preview key.
func (s *S3Store) ObjectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Put uploads data and returns an s3:// URL for it.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey := s.ObjectKey(key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectKey, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, objectKey)
	log.Debugf("published %s (%d bytes)", location, len(data))
	return location, nil
}
