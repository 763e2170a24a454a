// Package storage adapts an S3-compatible object store (MinIO in development).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options configures the S3 client.
type Options struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// objectAPI is the subset of the S3 client used here.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores objects in buckets of an S3-compatible service.
type S3 struct {
	api        objectAPI
	publicBase string
}

// NewS3 builds a path-style S3 client against the configured endpoint.
func NewS3(ctx context.Context, opts Options) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("platform/storage: load config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})
	base := opts.PublicBaseURL
	if base == "" {
		base = opts.Endpoint
	}
	return &S3{api: client, publicBase: strings.TrimRight(base, "/")}, nil
}

// Put uploads payload under bucket/key and returns the stored object path.
func (s *S3) Put(ctx context.Context, bucket, key, contentType string, payload []byte) (string, error) {
	if bucket == "" || key == "" {
		return "", errors.New("platform/storage: bucket and key required")
	}
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("platform/storage: put %s/%s: %w", bucket, key, err)
	}
	return key, nil
}

// Delete removes bucket/key. Missing objects are not an error on S3.
func (s *S3) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("platform/storage: delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL resolves the anonymous URL for an object in a public bucket.
func (s *S3) PublicURL(bucket, key string) string {
	return s.publicBase + "/" + url.PathEscape(bucket) + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
