package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/The-Nikhil-Pandey/clinxchat-api/pkg/logger"
)

type RateLimitRepository interface {
	// Hit counts one request against the key's fixed window and returns the
	// tally including this hit. The first hit arms the window expiry.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(rdb *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: rdb, log: log}
}

func (r *rateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("failed to count rate limit hit", "error", err, "key", key)
		return 0, err
	}
	return incr.Val(), nil
}
