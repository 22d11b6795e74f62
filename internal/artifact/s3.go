// Package artifact manages access to rendered videos held in object storage:
// minting time-limited stream and download URLs and issuing best-effort
// batch deletes.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrBucketRequired is returned when no bucket name is configured.
var ErrBucketRequired = errors.New("artifact: bucket is required")

// DefaultURLTTL is the expiry window applied when none is configured.
const DefaultURLTTL = time.Hour

// AccessURLs is a pair of time-limited URLs for one stored artifact.
type AccessURLs struct {
	// StreamURL is suitable for inline playback in a video element.
	StreamURL string
	// DownloadURL forces a file download named after the key's final
	// path segment.
	DownloadURL string
}

// Store defines the object-store operations the pipeline depends on.
type Store interface {
	// AccessURLs mints fresh stream and download URLs for a storage key.
	// URLs are never cached or renewed; each call starts a new expiry window.
	AccessURLs(ctx context.Context, key string) (AccessURLs, error)

	// Delete issues a batch delete for the given keys. Individual key
	// failures are logged, not returned.
	Delete(ctx context.Context, keys []string) error
}

// presignAPI is the subset of the S3 presign client used by S3Store.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// deleteAPI is the subset of the S3 client used by S3Store.
type deleteAPI interface {
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Config holds the configuration for the artifact store.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	URLTTL          time.Duration
}

// S3Store implements Store against an S3-compatible object store.
type S3Store struct {
	presigner presignAPI
	deleter   deleteAPI
	bucket    string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewS3Store creates an S3-backed artifact store.
func NewS3Store(cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = DefaultURLTTL
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Store{
		presigner: s3.NewPresignClient(client),
		deleter:   client,
		bucket:    cfg.Bucket,
		ttl:       cfg.URLTTL,
		logger:    logger,
	}, nil
}

// AccessURLs mints a streaming URL and a forced-download URL for key, both
// expiring after the configured window.
func (s *S3Store) AccessURLs(ctx context.Context, key string) (AccessURLs, error) {
	stream, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return AccessURLs{}, fmt.Errorf("artifact: presign stream URL: %w", err)
	}

	download, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(key))),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return AccessURLs{}, fmt.Errorf("artifact: presign download URL: %w", err)
	}

	return AccessURLs{
		StreamURL:   stream.URL,
		DownloadURL: download.URL,
	}, nil
}

// Delete removes the given keys in one batch request. Keys that fail to
// delete are logged individually so orphaned objects can be reconciled;
// only a failure of the request itself is returned.
func (s *S3Store) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := s.deleter.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("artifact: batch delete: %w", err)
	}

	for _, e := range out.Errors {
		s.logger.Warn("artifact delete failed",
			slog.String("key", aws.ToString(e.Key)),
			slog.String("code", aws.ToString(e.Code)),
			slog.String("message", aws.ToString(e.Message)),
		)
	}

	return nil
}
