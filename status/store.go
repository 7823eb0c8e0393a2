package status

import (
	"context"
	"fmt"

	"auto_tweet_agent/config"
	"auto_tweet_agent/logging"
)

// Store is the single-slot status record.
//
// Read never fails: backend errors are logged and Default is returned.
// Write replaces the whole record at once; concurrent writers race and the
// last one wins.
type Store interface {
	Read(ctx context.Context) Record
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StatusConfig, logger logging.Logger) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendBolt:
		return OpenBolt(cfg.Path, logger)
	case config.BackendRedis:
		client, err := NewRedisClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.RedisKey, logger), nil
	default:
		return nil, fmt.Errorf("status backend %s not supported", cfg.Backend)
	}
}
