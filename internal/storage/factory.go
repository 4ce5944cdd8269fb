package storage

import (
	"fmt"

	"github.com/timmy/picseek/internal/config"
)

// NewBlobStore creates the configured BlobStore backend.
func NewBlobStore(cfg *config.StorageConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "minio", "":
		return NewMinIOStore(&MinIOConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
		})
	case "s3":
		return NewS3Store(&S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
