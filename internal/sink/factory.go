package sink

import (
	"context"
	"fmt"

	"acutils-go/internal/acu"
	"acutils-go/internal/config"
)

// NewSinkFromConfig creates a ReportSink implementation based on the sink
// config type.
func NewSinkFromConfig(ctx context.Context, cfg config.SinkConfig) (acu.ReportSink, error) {
	switch cfg.Type {
	case "memory":
		return NewMemorySink(cfg.Name), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 sink requires s3_bucket to be set")
		}
		return NewS3Sink(ctx, cfg.Name, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region,
			cfg.S3AccessKeyID, cfg.S3SecretAccessKey)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem sink requires fs_root to be set")
		}
		return NewFileSystemSink(cfg.Name, cfg.FSRoot)
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Type)
	}
}
