package dedupe

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/kpiboard/pkg/logger"
	"github.com/okian/kpiboard/pkg/metrics"
)

const (
	defaultRedisTTL    = 24 * time.Hour
	defaultRedisPrefix = "kpiboard:snapshot:"
)

// RedisDeduper shares seen snapshot ids between service instances using
// SETNX keys with a TTL.
//
// If Redis is unreachable the deduper fails open: the snapshot is treated as
// new. Re-scoring a snapshot is harmless because the latest record wins.
type RedisDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger logger.Logger

	// size counts ids recorded by this process only.
	size atomic.Int64
}

// NewRedisDeduper wraps an existing Redis client.
func NewRedisDeduper(client redis.UniversalClient, opts ...RedisOption) *RedisDeduper {
	d := &RedisDeduper{
		client: client,
		ttl:    defaultRedisTTL,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *RedisDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	ok, err := d.client.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		metrics.RecordErrorByComponent("dedupe", "redis_setnx")
		d.warn(ctx, "redis dedupe check failed; treating snapshot as new", id, err)
		return false
	}
	if ok {
		d.size.Add(1)
		return false
	}
	return true
}

// Unrecord implements Deduper.
func (d *RedisDeduper) Unrecord(ctx context.Context, id string) {
	n, err := d.client.Del(ctx, d.prefix+id).Result()
	if err != nil {
		metrics.RecordErrorByComponent("dedupe", "redis_del")
		d.warn(ctx, "redis dedupe unrecord failed", id, err)
		return
	}
	if n > 0 {
		d.size.Add(-1)
	}
}

// Size implements Deduper.
func (d *RedisDeduper) Size() int64 {
	return d.size.Load()
}

// Ping checks connectivity.
func (d *RedisDeduper) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}

func (d *RedisDeduper) warn(ctx context.Context, msg, id string, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Warn(ctx, msg, logger.String("snapshotID", id), logger.Error(err))
}
