// Package storage provides object storage for proof-of-delivery images and signatures.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	tradeapp "github.com/orderflow/backend/internal/application/trade"
	"github.com/orderflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ tradeapp.ProofStorage = (*S3ProofStorage)(nil)

var errKeyRequired = errors.New("storage key is required")

const (
	defaultRegion        = "us-east-1"
	defaultEndpoint      = "localhost:9000"
	defaultPresignExpiry = 15 * time.Minute
)

// S3ProofStorage keeps proofs in one bucket of an S3-compatible service
// (AWS S3, MinIO, RustFS).
type S3ProofStorage struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucket        string
	presignExpiry time.Duration
	logger        *zap.Logger
}

type S3ProofStorageOption func(*S3ProofStorage)

func WithLogger(logger *zap.Logger) S3ProofStorageOption {
	return func(s *S3ProofStorage) { s.logger = logger }
}

// WithPresignExpiration sets how long download URLs stay valid
func WithPresignExpiration(d time.Duration) S3ProofStorageOption {
	return func(s *S3ProofStorage) { s.presignExpiry = d }
}

func NewS3ProofStorage(cfg *config.StorageConfig, opts ...S3ProofStorageOption) (*S3ProofStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	var missing []error
	for _, field := range []struct{ value, name string }{
		{cfg.Bucket, "bucket"},
		{cfg.AccessKey, "access key"},
		{cfg.SecretKey, "secret key"},
	} {
		if field.value == "" {
			missing = append(missing, fmt.Errorf("storage %s is required", field.name))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(cfg, endpoint)
	if err != nil {
		return nil, err
	}

	s := &S3ProofStorage{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignExpiry: cfg.PresignExpiration,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.presignExpiry <= 0 {
		s.presignExpiry = defaultPresignExpiry
	}
	return s, nil
}

func newS3Client(cfg *config.StorageConfig, endpoint string) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	}), nil
}

// normalizeEndpoint gives a bare host:port a scheme matching useSSL
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// isNotFound covers the typed SDK errors and the bare 404 codes that some
// S3-compatible services return instead
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}

// EnsureBucket creates the bucket on first start
func (s *S3ProofStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	switch {
	case err == nil:
		return nil
	case !isNotFound(err):
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("Creating proof bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3ProofStorage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	if key == "" {
		return errKeyRequired
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("proof uploaded", zap.String("key", key), zap.Int("size", len(data)))
	return nil
}

// Delete succeeds for keys that do not exist
func (s *S3ProofStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errKeyRequired
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// DownloadURL presigns a GET for key
func (s *S3ProofStorage) DownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errKeyRequired
	}
	req, err := s.presigner.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)},
		s3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3ProofStorage) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errKeyRequired
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	}
	return false, fmt.Errorf("check %s: %w", key, err)
}

func (s *S3ProofStorage) Bucket() string {
	return s.bucket
}
