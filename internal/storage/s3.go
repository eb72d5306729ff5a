package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// StorageType names an S3 flavour.
type StorageType string

const (
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
)

// S3Config holds the settings of an S3-compatible artifact bucket.
type S3Config struct {
	Type      StorageType
	Endpoint  string // empty for AWS itself
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	PublicURL string // CDN or r2.dev prefix; used verbatim in GetURL when set
}

// S3Storage stores artifacts in an S3-compatible bucket.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	baseURL   string
	storeType StorageType
}

// NewS3Storage creates an S3Storage. Requests are path-style whenever a custom endpoint is set.
func NewS3Storage(ctx context.Context, cfg *S3Config) (*S3Storage, error) {
	storeType := cfg.Type
	if storeType == "" {
		storeType = detectStorageType(cfg.Endpoint)
	}

	region := cfg.Region
	if region == "" || (region == "auto" && storeType != StorageTypeR2) {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)
	var endpointURL string
	if endpoint != "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		endpointURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimSuffix(cfg.PublicURL, "/")
	switch {
	case baseURL != "":
	case endpointURL != "":
		baseURL = endpointURL + "/" + cfg.Bucket
	default:
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		baseURL:   baseURL,
		storeType: storeType,
	}, nil
}

// EnsureBucket creates the bucket when it is missing. R2 buckets must already exist.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if s.storeType == StorageTypeR2 {
		return fmt.Errorf("bucket %s does not exist, create it in the R2 dashboard", s.bucket)
	}

	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload puts one object.
func (s *S3Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (s *S3Storage) GetURL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}
