// Package blob stores opaque objects for archived snapshots.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/smallbiznis/flyroom/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverS3     Driver = "s3"
)

var (
	ErrNotFound          = errors.New("blob_not_found")
	ErrUnsupportedDriver = errors.New("blob_unsupported_driver")
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a thin S3-like abstraction. Put overwrites an existing key.
// Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var Module = fx.Module("blob",
	fx.Provide(Open),
)

// Open selects the driver named by config.
func Open(cfg config.Config, log *zap.Logger) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(cfg.Blob.Driver)))
	switch driver {
	case "", DriverMemory:
		log.Warn("using in-memory blob store; archives are lost on restart")
		return NewMemory(), nil
	case DriverS3:
		store, err := NewS3(context.Background(), s3Config(cfg.Blob))
		if err != nil {
			return nil, err
		}
		log.Info("blob store configured",
			zap.String("driver", string(driver)),
			zap.String("bucket", cfg.Blob.Bucket),
			zap.String("endpoint", cfg.Blob.Endpoint),
		)
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

func s3Config(cfg config.BlobConfig) S3Config {
	return S3Config{
		Region:          cfg.Region,
		Bucket:          cfg.Bucket,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		PathStyle:       cfg.PathStyle,
	}
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
