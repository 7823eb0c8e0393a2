package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"auto_tweet_agent/logging"
)

const defaultDialTimeout = 5 * time.Second

// RedisStore keeps the record as one JSON value under one key. SET replaces
// the value atomically, so readers never see a partial record.
type RedisStore struct {
	client goredis.UniversalClient
	key    string
	logger logging.Logger
}

func NewRedisStore(client goredis.UniversalClient, key string, logger logging.Logger) *RedisStore {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &RedisStore{client: client, key: key, logger: logger}
}

// NewRedisClientFromURL creates a single-node Redis client from a URL and pings it.
func NewRedisClientFromURL(ctx context.Context, redisURL string) (*goredis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = defaultDialTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaultDialTimeout
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Read(ctx context.Context) Record {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Default()
	}
	if err != nil {
		r.logger.WithError(err).WithField("key", r.key).Warn("Failed to read status record; reporting default")
		return Default()
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		r.logger.WithError(err).WithField("key", r.key).Warn("Malformed status record; reporting default")
		return Default()
	}
	return rec
}

func (r *RedisStore) Write(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("write status to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
