// Package publish stores index artifacts on local disk, S3 or MinIO and
// loads them back for the search service.
package publish

import (
	"context"
	"fmt"
	"path"

	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
)

// Store persists artifacts by name.
type Store interface {
	// Name is the target name used in logs and metrics.
	Name() string
	// Put stores data under name and returns where it was written.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get returns the artifact stored under name, or an error wrapping
	// apperrors.ErrArtifactNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
}

// Open builds the store selected by cfg.Target.
func Open(ctx context.Context, cfg config.PublishConfig) (Store, error) {
	switch cfg.Target {
	case "", "file":
		return NewLocal(cfg.Dir), nil
	case "s3":
		return NewS3FromConfig(ctx, cfg)
	case "minio":
		return NewMinIOFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unknown publish target %q", cfg.Target)
	}
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
