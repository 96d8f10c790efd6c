package storage

import (
	"context"
	"time"
)

// MediaCache remembers file_info references returned by media uploads
type MediaCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, fileInfo string, ttl time.Duration) error
	Close() error
}
