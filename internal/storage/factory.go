package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/repobrief/internal/config"
)

// NewStorage creates the artifact store described by cfg and makes sure its bucket exists.
// Parameters:
//   - ctx: bounds the bucket check.
//   - cfg: storage section of the application config.
// Returns:
//   - ObjectStorage: nil when publication is disabled.
//   - error: non-nil if the client cannot be created or the bucket is unusable.
func NewStorage(ctx context.Context, cfg *config.StorageConfig) (ObjectStorage, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	switch strings.ToLower(cfg.Type) {
	case "minio":
		s, err := NewMinIOStorage(&MinIOConfig{
			Endpoint:  normalizeEndpoint(cfg.Endpoint),
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			PublicURL: cfg.PublicURL,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "", "s3", "r2", "s3compatible":
		s, err := NewS3Storage(ctx, &S3Config{
			Type:      StorageType(strings.ToLower(cfg.Type)),
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			PublicURL: cfg.PublicURL,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// detectStorageType infers the provider from the endpoint host.
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case endpoint == "":
		return StorageTypeS3
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}

// normalizeEndpoint strips the scheme and any path from endpoint.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return endpoint
}
