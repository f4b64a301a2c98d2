// Package storage provides the S3-compatible object store backing the
// content-addressed payload queue. Objects are keyed by content hash, so the
// same bytes are stored once no matter how many file paths reference them.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/fx"

	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/pkg/logger"
)

var Module = fx.Module("storage",
	fx.Provide(NewService),
)

// Service provides S3-compatible storage operations
type Service struct {
	client *s3.Client
	cfg    config.StorageConfig
	log    *slog.Logger
	bucket string
}

// UploadOptions configures an upload operation
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}

// NewService creates a new storage service
func NewService(cfg *config.Config, log *slog.Logger) (*Service, error) {
	sc := cfg.Storage

	if !sc.Enabled() {
		log.Warn("storage service disabled - no configuration provided")
		return &Service{
			cfg: sc,
			log: log.With(logger.Scope("storage")),
		}, nil
	}

	// Custom endpoint resolver for MinIO-style deployments
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               sc.Endpoint,
				HostnameImmutable: true,
				SigningRegion:     sc.Region,
			}, nil
		},
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(sc.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			sc.AccessKey,
			sc.SecretKey,
			"",
		)),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing is required for MinIO
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	log.Info("storage service initialized",
		slog.String("endpoint", sc.Endpoint),
		slog.String("bucket", sc.BucketContent),
	)

	return &Service{
		client: client,
		cfg:    sc,
		log:    log.With(logger.Scope("storage")),
		bucket: sc.BucketContent,
	}, nil
}

// Enabled returns true if the storage service is properly configured
func (s *Service) Enabled() bool {
	return s.client != nil
}

// ContentKey returns the object key for a content hash.
func ContentKey(contentHash string) string {
	return "sha256/" + contentHash
}

// Upload stores the payload for a content hash.
func (s *Service) Upload(ctx context.Context, contentHash string, data io.Reader, size int64, opts UploadOptions) error {
	if !s.Enabled() {
		return fmt.Errorf("storage service not enabled")
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(ContentKey(contentHash)),
		Body:          data,
		ContentLength: aws.Int64(size),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.log.Error("failed to upload object",
			slog.String("content_hash", contentHash),
			logger.Error(err),
		)
		return fmt.Errorf("upload failed: %w", err)
	}

	return nil
}

// Download retrieves the payload for a content hash.
func (s *Service) Download(ctx context.Context, contentHash string) (io.ReadCloser, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("storage service not enabled")
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ContentKey(contentHash)),
	})
	if err != nil {
		s.log.Error("failed to download object",
			slog.String("content_hash", contentHash),
			logger.Error(err),
		)
		return nil, fmt.Errorf("download failed: %w", err)
	}

	return result.Body, nil
}

// Delete removes the payload for a content hash. Called by the content
// garbage collector once the last file reference is gone.
func (s *Service) Delete(ctx context.Context, contentHash string) error {
	if !s.Enabled() {
		return fmt.Errorf("storage service not enabled")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ContentKey(contentHash)),
	})
	if err != nil {
		s.log.Error("failed to delete object",
			slog.String("content_hash", contentHash),
			logger.Error(err),
		)
		return fmt.Errorf("delete failed: %w", err)
	}

	s.log.Debug("object deleted", slog.String("content_hash", contentHash))
	return nil
}

// Exists checks if the payload for a content hash is present.
func (s *Service) Exists(ctx context.Context, contentHash string) (bool, error) {
	if !s.Enabled() {
		return false, fmt.Errorf("storage service not enabled")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ContentKey(contentHash)),
	})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "NotFound") || strings.Contains(errStr, "404") || strings.Contains(errStr, "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("head object failed: %w", err)
	}

	return true, nil
}
