package state

import (
	"context"
	"fmt"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/platform/s3"
)

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg config.StateConfig, region string) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.Path)
	case config.BackendBolt:
		return NewBoltStore(cfg.Path)
	case config.BackendS3:
		client, err := s3.NewClient(ctx, s3.Options{Region: region, Endpoint: cfg.Endpoint})
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx, cfg.Bucket); err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
