package queue

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handler processes one job. A nil return completes the job; an error either
// schedules a retry with exponential backoff or, once attempts are exhausted,
// marks the job failed.
type Handler func(ctx context.Context, job *Job) error

// defaultStallTimeout is how long an active job may go without a heartbeat
// before the scheduler considers its worker dead and reclaims it.
const defaultStallTimeout = 30 * time.Second

// maxStalls bounds how often a job may be reclaimed from a dead worker before
// it is failed outright.
const maxStalls = 1

// Consumer pulls jobs off a Queue with a fixed worker pool. A separate
// scheduler goroutine promotes due delayed jobs back onto the wait list and
// reclaims jobs whose worker stopped heartbeating.
type Consumer struct {
	queue          *Queue
	handler        Handler
	concurrency    int
	backoffInitial time.Duration
	stallTimeout   time.Duration
	logger         *slog.Logger

	wg sync.WaitGroup
}

func NewConsumer(queue *Queue, handler Handler, concurrency int, backoffInitial time.Duration, logger *slog.Logger) *Consumer {
	if concurrency <= 0 {
		concurrency = 3
	}
	if backoffInitial <= 0 {
		backoffInitial = 5 * time.Second
	}
	return &Consumer{
		queue:          queue,
		handler:        handler,
		concurrency:    concurrency,
		backoffInitial: backoffInitial,
		stallTimeout:   defaultStallTimeout,
		logger:         logger,
	}
}

// Start launches the worker pool and scheduler. It returns immediately; use
// Wait after cancelling ctx for a drained shutdown.
func (c *Consumer) Start(ctx context.Context) {
	for i := 0; i < c.concurrency; i++ {
		c.wg.Add(1)
		go func(worker int) {
			defer c.wg.Done()
			c.runWorker(ctx, worker)
		}(i)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runScheduler(ctx)
	}()

	c.logger.Info("queue consumer started",
		"queue", c.queue.name,
		"concurrency", c.concurrency)
}

// Wait blocks until all workers have exited.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) runWorker(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := c.queue.client.BRPop(ctx, 2*time.Second, c.queue.waitKey()).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			c.logger.Error("queue pop failed", "queue", c.queue.name, "error", err)
			time.Sleep(time.Second)
			continue
		}

		// BRPop returns [key, value]
		id := res[1]
		c.process(ctx, worker, id)
	}
}

func (c *Consumer) process(ctx context.Context, worker int, id string) {
	job, err := c.queue.GetJob(ctx, id)
	if err != nil {
		c.logger.Error("load job failed", "queue", c.queue.name, "job_id", id, "error", err)
		return
	}
	if job == nil {
		// removed between pop and load
		return
	}

	if err := c.queue.markActive(ctx, id, time.Now().Add(c.stallTimeout)); err != nil {
		c.logger.Error("mark active failed", "queue", c.queue.name, "job_id", id, "error", err)
		return
	}
	stopHeartbeat := c.heartbeat(ctx, id)
	defer stopHeartbeat()

	attempt := job.Attempts + 1
	c.logger.Info("job processing",
		"queue", c.queue.name,
		"job_id", id,
		"attempt", attempt,
		"worker", worker)

	if err := c.handler(ctx, job); err != nil {
		c.retryOrFail(ctx, job, attempt, err)
		return
	}

	if err := c.queue.markCompleted(ctx, id); err != nil {
		c.logger.Error("mark completed failed", "queue", c.queue.name, "job_id", id, "error", err)
		return
	}
	c.logger.Info("job completed", "queue", c.queue.name, "job_id", id, "attempt", attempt)
}

func (c *Consumer) retryOrFail(ctx context.Context, job *Job, attempt int, cause error) {
	if attempt >= job.MaxAttempts {
		if err := c.queue.markFailed(ctx, job.ID, attempt, cause.Error()); err != nil {
			c.logger.Error("mark failed errored", "queue", c.queue.name, "job_id", job.ID, "error", err)
			return
		}
		c.logger.Error("job failed permanently",
			"queue", c.queue.name,
			"job_id", job.ID,
			"attempts", attempt,
			"error", cause)
		return
	}

	// exponential backoff: initial * 2^(attempt-1)
	delay := c.backoffInitial << (attempt - 1)
	readyAt := time.Now().Add(delay)
	if err := c.queue.scheduleRetry(ctx, job.ID, attempt, cause.Error(), readyAt); err != nil {
		c.logger.Error("schedule retry errored", "queue", c.queue.name, "job_id", job.ID, "error", err)
		return
	}
	c.logger.Warn("job retry scheduled",
		"queue", c.queue.name,
		"job_id", job.ID,
		"attempt", attempt,
		"delay", delay,
		"error", cause)
}

// heartbeat keeps extending the job's stall lease while the handler runs. It
// stops when the returned func is called or when ctx is cancelled, so a killed
// worker stops renewing and the scheduler reclaims the job.
func (c *Consumer) heartbeat(ctx context.Context, id string) func() {
	done := make(chan struct{})
	interval := c.stallTimeout / 3
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.queue.extendLease(ctx, id, time.Now().Add(c.stallTimeout)); err != nil {
					c.logger.Error("lease renewal failed", "queue", c.queue.name, "job_id", id, "error", err)
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// runScheduler promotes delayed jobs whose backoff has elapsed and reclaims
// active jobs whose lease lapsed.
func (c *Consumer) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.promoteDue(ctx)
			c.recoverStalled(ctx)
		}
	}
}

func (c *Consumer) promoteDue(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	ids, err := c.queue.client.ZRangeByScore(ctx, c.queue.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		c.logger.Error("scan delayed jobs failed", "queue", c.queue.name, "error", err)
		return
	}

	for _, id := range ids {
		// ZRem returning 0 means another scheduler already claimed it.
		removed, err := c.queue.client.ZRem(ctx, c.queue.delayedKey(), id).Result()
		if err != nil || removed == 0 {
			continue
		}
		pipe := c.queue.client.TxPipeline()
		pipe.HSet(ctx, c.queue.jobKey(id), "state", string(StateWaiting))
		pipe.LPush(ctx, c.queue.waitKey(), id)
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.Error("promote delayed job failed", "queue", c.queue.name, "job_id", id, "error", err)
		}
	}
}

// recoverStalled reclaims active jobs whose worker stopped heartbeating: the
// job goes back to waiting up to maxStalls times, then fails.
func (c *Consumer) recoverStalled(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	ids, err := c.queue.client.ZRangeByScore(ctx, c.queue.activeKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		c.logger.Error("scan stalled jobs failed", "queue", c.queue.name, "error", err)
		return
	}

	for _, id := range ids {
		removed, err := c.queue.client.ZRem(ctx, c.queue.activeKey(), id).Result()
		if err != nil || removed == 0 {
			continue
		}

		stalls, err := c.queue.client.HIncrBy(ctx, c.queue.jobKey(id), "stalls", 1).Result()
		if err != nil {
			c.logger.Error("count stall failed", "queue", c.queue.name, "job_id", id, "error", err)
			continue
		}

		if stalls > maxStalls {
			job, err := c.queue.GetJob(ctx, id)
			if err != nil || job == nil {
				continue
			}
			if err := c.queue.markFailed(ctx, id, job.Attempts, "job stalled"); err != nil {
				c.logger.Error("fail stalled job errored", "queue", c.queue.name, "job_id", id, "error", err)
				continue
			}
			c.logger.Error("stalled job failed permanently", "queue", c.queue.name, "job_id", id, "stalls", stalls)
			continue
		}

		pipe := c.queue.client.TxPipeline()
		pipe.HSet(ctx, c.queue.jobKey(id), "state", string(StateWaiting))
		pipe.LPush(ctx, c.queue.waitKey(), id)
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.Error("requeue stalled job failed", "queue", c.queue.name, "job_id", id, "error", err)
			continue
		}
		c.logger.Warn("stalled job reclaimed", "queue", c.queue.name, "job_id", id, "stalls", stalls)
	}
}
