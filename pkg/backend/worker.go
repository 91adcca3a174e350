package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/slackhub/pkg/errors"
	"github.com/kart-io/slackhub/pkg/logger"
)

// WorkerStats counts what a Worker has handled.
type WorkerStats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Worker drains a Redis queue filled by RedisBackend and forwards each job
// to another backend. Jobs that fail are pushed onto "<key>:failed" with the
// error attached.
type Worker struct {
	client      *redis.Client
	key         string
	failedKey   string
	target      Backend
	pollTimeout time.Duration
	processed   int64
	failed      int64
	logger      logger.Logger
}

// NewWorker creates a Worker reading key and delivering through target.
func NewWorker(client *redis.Client, key string, target Backend, log logger.Logger) *Worker {
	if log == nil {
		log = logger.Discard
	}
	return &Worker{
		client:      client,
		key:         key,
		failedKey:   key + ":failed",
		target:      target,
		pollTimeout: time.Second,
		logger:      log,
	}
}

// Run blocks, delivering jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Worker started", "key", w.key)
	defer w.logger.Info("Worker stopped", "key", w.key, "processed", atomic.LoadInt64(&w.processed), "failed", atomic.LoadInt64(&w.failed))

	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := w.client.BLPop(ctx, w.pollTimeout, w.key).Result()
		if err != nil {
			if stderrors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("Failed to dequeue", "key", w.key, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.pollTimeout):
			}
			continue
		}

		// BLPOP answers [key, value].
		w.handle(ctx, []byte(res[1]))
	}
}

// Drain delivers every job currently queued and returns how many it handled.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		raw, err := w.client.LPop(ctx, w.key).Bytes()
		if stderrors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrap(err, errors.ErrQueueFailed, "failed to dequeue")
		}
		w.handle(ctx, raw)
		n++
	}
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Processed: atomic.LoadInt64(&w.processed),
		Failed:    atomic.LoadInt64(&w.failed),
	}
}

func (w *Worker) handle(ctx context.Context, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		w.logger.Error("Dropping malformed job", "error", err)
		atomic.AddInt64(&w.failed, 1)
		return
	}

	if err := w.target.Send(ctx, job.URL, job.Data); err != nil {
		atomic.AddInt64(&w.failed, 1)
		w.logger.Warn("Failed to deliver job", "jobID", job.ID, "error", err)

		job.Error = err.Error()
		failed, merr := json.Marshal(job)
		if merr == nil {
			merr = w.client.RPush(ctx, w.failedKey, failed).Err()
		}
		if merr != nil {
			w.logger.Error("Failed to park job", "jobID", job.ID, "error", merr)
		}
		return
	}

	atomic.AddInt64(&w.processed, 1)
	w.logger.Debug("Job delivered", "jobID", job.ID)
}
