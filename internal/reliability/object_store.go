// Package reliability archives saved valuations to S3-compatible object storage
// so the audit trail outlives the ledger database.
package reliability

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/config"
)

// ObjectInfo describes one stored object
type ObjectInfo struct {
	LastModified time.Time `json:"last_modified"`
	Key          string    `json:"key"`
	SizeBytes    int64     `json:"size_bytes"`
}

// ObjectStore is the subset of an object storage API the archive needs
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// S3ObjectStore stores objects in an S3 bucket or any S3-compatible service
type S3ObjectStore struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// NewS3ObjectStore creates an object store from the archive settings. Static
// credentials are used when configured, the default AWS chain otherwise.
func NewS3ObjectStore(ctx context.Context, cfg config.ArchiveConfig, log zerolog.Logger) (*S3ObjectStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3ObjectStore{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		log:      log.With().Str("component", "s3_object_store").Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

// Put uploads body under key
func (s *S3ObjectStore) Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.log.Debug().Str("key", key).Msg("Object uploaded")
	return nil
}

// List returns every object under prefix
func (s *S3ObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			info := ObjectInfo{Key: *obj.Key}
			if obj.Size != nil {
				info.SizeBytes = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}
