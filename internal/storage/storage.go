package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eventflow/event-management/internal"
)

// UploadParams carries one object destined for the backing store. Key is the
// full object key including any folder prefix.
type UploadParams struct {
	Key         string
	Body        []byte
	ContentType string
}

// UploadResult reports where the stored object can be fetched from.
type UploadResult struct {
	Key string
	URL string
}

// Provider is the blob storage contract. Implementations: local disk for
// development, S3 for production.
type Provider interface {
	Upload(ctx context.Context, params UploadParams) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// NewProvider selects the backend from config. Unknown drivers are a startup
// error, not a silent fallback.
func NewProvider(ctx context.Context, cfg internal.StorageConfig, logger *slog.Logger) (Provider, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalProvider(cfg.LocalDir, cfg.PublicBaseURL, logger)
	case "s3":
		return NewS3Provider(ctx, cfg.S3Bucket, cfg.S3Region, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
