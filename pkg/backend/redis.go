package backend

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kart-io/slackhub/pkg/config"
	"github.com/kart-io/slackhub/pkg/errors"
	"github.com/kart-io/slackhub/pkg/logger"
)

// Job is a queued payload as stored in Redis.
type Job struct {
	ID         string            `json:"id"`
	URL        string            `json:"url"`
	Data       map[string]string `json:"data"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
	Error      string            `json:"error,omitempty"`
}

// RedisBackend queues payloads on a Redis list for a Worker to deliver.
type RedisBackend struct {
	client   *redis.Client
	key      string
	closed   int32
	enqueued int64
	logger   logger.Logger
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(cfg config.RedisConfig, log logger.Logger) (*RedisBackend, error) {
	if log == nil {
		log = logger.Discard
	}
	if cfg.Addr == "" {
		return nil, errors.NewConfigError("redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Error("Failed to connect to Redis", "addr", cfg.Addr, "error", err)
		return nil, errors.Wrap(err, errors.ErrQueueFailed, "failed to connect to redis")
	}

	b := NewRedisBackendWithClient(client, cfg.Key, log)
	log.Info("Redis backend created", "addr", cfg.Addr, "key", b.key)
	return b, nil
}

// NewRedisBackendWithClient queues onto key through an existing client.
func NewRedisBackendWithClient(client *redis.Client, key string, log logger.Logger) *RedisBackend {
	if log == nil {
		log = logger.Discard
	}
	if key == "" {
		key = config.Default().Redis.Key
	}
	return &RedisBackend{client: client, key: key, logger: log}
}

// Send implements Backend by pushing the payload onto the queue.
func (b *RedisBackend) Send(ctx context.Context, url string, data map[string]string) error {
	if atomic.LoadInt32(&b.closed) == 1 {
		return errors.New(errors.ErrQueueFailed, "redis backend is closed")
	}

	job := Job{
		ID:         uuid.NewString(),
		URL:        url,
		Data:       copyData(data),
		EnqueuedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.ErrQueueFailed, "failed to serialize job")
	}

	if err := b.client.RPush(ctx, b.key, raw).Err(); err != nil {
		b.logger.Error("Failed to enqueue message", "key", b.key, "error", err)
		return errors.Wrap(err, errors.ErrQueueFailed, "failed to enqueue message")
	}

	atomic.AddInt64(&b.enqueued, 1)
	b.logger.Debug("Message enqueued", "jobID", job.ID, "key", b.key)
	return nil
}

// Key returns the Redis list payloads are pushed onto.
func (b *RedisBackend) Key() string {
	return b.key
}

// Enqueued returns how many payloads this backend has queued.
func (b *RedisBackend) Enqueued() int64 {
	return atomic.LoadInt64(&b.enqueued)
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	if !atomic.CompareAndSwapInt32(&b.closed, 0, 1) {
		return nil
	}
	return b.client.Close()
}
