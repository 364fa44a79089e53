package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job states as stored in redis. A job is created waiting (or delayed when
// scheduled with backoff), picked up as active, and ends completed or failed.
type State string

const (
	StateWaiting   State = "waiting"
	StateDelayed   State = "delayed"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

const (
	// retention caps on the terminal bookkeeping lists
	completedRetention = 1000
	failedRetention    = 5000
)

type Job struct {
	ID          string          `json:"id"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	State       State           `json:"state"`
	LastError   string          `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
}

// Queue is a redis-backed job queue with per-id deduplication: a job id that
// is still waiting, delayed or active cannot be enqueued again. Terminal jobs
// (completed/failed) must be removed before the same id can re-enter.
type Queue struct {
	client      *redis.Client
	name        string
	maxAttempts int
	logger      *slog.Logger
}

func NewQueue(client *redis.Client, name string, maxAttempts int, logger *slog.Logger) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Queue{
		client:      client,
		name:        name,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (q *Queue) jobKey(id string) string {
	return fmt.Sprintf("queue:%s:job:%s", q.name, id)
}

func (q *Queue) waitKey() string      { return fmt.Sprintf("queue:%s:wait", q.name) }
func (q *Queue) delayedKey() string   { return fmt.Sprintf("queue:%s:delayed", q.name) }
func (q *Queue) activeKey() string    { return fmt.Sprintf("queue:%s:active", q.name) }
func (q *Queue) completedKey() string { return fmt.Sprintf("queue:%s:completed", q.name) }
func (q *Queue) failedKey() string    { return fmt.Sprintf("queue:%s:failed", q.name) }

// Enqueue adds a job keyed by id. Returns false without touching anything
// when the id already has a live (non-terminal) job. The claim itself is a
// single HSETNX on the job hash, so concurrent enqueues of the same id
// resolve to exactly one winner.
func (q *Queue) Enqueue(ctx context.Context, id string, payload json.RawMessage) (bool, error) {
	state, err := q.State(ctx, id)
	if err != nil {
		return false, err
	}
	switch state {
	case StateWaiting, StateDelayed, StateActive:
		q.logger.Debug("duplicate job suppressed", "queue", q.name, "job_id", id, "state", string(state))
		return false, nil
	case StateCompleted, StateFailed:
		// stale terminal record for a re-issued id; replace it
		if err := q.Remove(ctx, id); err != nil {
			return false, err
		}
	}

	claimed, err := q.client.HSetNX(ctx, q.jobKey(id), "state", string(StateWaiting)).Result()
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	if !claimed {
		// lost the race to a concurrent enqueue
		q.logger.Debug("duplicate job suppressed", "queue", q.name, "job_id", id)
		return false, nil
	}

	now := time.Now()
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(id), map[string]interface{}{
		"payload":      string(payload),
		"attempts":     0,
		"max_attempts": q.maxAttempts,
		"created_at":   now.Format(time.RFC3339Nano),
	})
	pipe.LPush(ctx, q.waitKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("enqueue job %s: %w", id, err)
	}

	q.logger.Info("job enqueued", "queue", q.name, "job_id", id)
	return true, nil
}

// State returns the job's current state, or "" when the id is unknown.
func (q *Queue) State(ctx context.Context, id string) (State, error) {
	val, err := q.client.HGet(ctx, q.jobKey(id), "state").Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("read job state %s: %w", id, err)
	}
	return State(val), nil
}

// GetJob loads the full job record, or nil when the id is unknown.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	fields, err := q.client.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	job := &Job{
		ID:        id,
		Payload:   json.RawMessage(fields["payload"]),
		State:     State(fields["state"]),
		LastError: fields["last_error"],
	}
	job.Attempts, _ = strconv.Atoi(fields["attempts"])
	job.MaxAttempts, _ = strconv.Atoi(fields["max_attempts"])
	if ts := fields["created_at"]; ts != "" {
		job.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	if ts := fields["processed_at"]; ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err == nil {
			job.ProcessedAt = &t
		}
	}
	return job, nil
}

// Remove deletes a job record and any queue references to it. Used to clear
// a terminal job so its id can be enqueued again.
func (q *Queue) Remove(ctx context.Context, id string) error {
	pipe := q.client.TxPipeline()
	pipe.Del(ctx, q.jobKey(id))
	pipe.LRem(ctx, q.waitKey(), 0, id)
	pipe.ZRem(ctx, q.delayedKey(), id)
	pipe.ZRem(ctx, q.activeKey(), id)
	pipe.LRem(ctx, q.completedKey(), 0, id)
	pipe.LRem(ctx, q.failedKey(), 0, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove job %s: %w", id, err)
	}
	return nil
}

// Counts reports queue depth per state for health and admin endpoints.
func (q *Queue) Counts(ctx context.Context) (map[State]int64, error) {
	pipe := q.client.Pipeline()
	waiting := pipe.LLen(ctx, q.waitKey())
	delayed := pipe.ZCard(ctx, q.delayedKey())
	completed := pipe.LLen(ctx, q.completedKey())
	failed := pipe.LLen(ctx, q.failedKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queue counts: %w", err)
	}
	return map[State]int64{
		StateWaiting:   waiting.Val(),
		StateDelayed:   delayed.Val(),
		StateCompleted: completed.Val(),
		StateFailed:    failed.Val(),
	}, nil
}

// markActive records the job as held by a worker until deadline; the lease is
// renewed by the worker's heartbeat and swept by the scheduler when it lapses.
func (q *Queue) markActive(ctx context.Context, id string, deadline time.Time) error {
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(id), "state", string(StateActive))
	pipe.ZAdd(ctx, q.activeKey(), redis.Z{Score: float64(deadline.UnixMilli()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark job %s active: %w", id, err)
	}
	return nil
}

// extendLease pushes the stall deadline forward for a job still being worked.
func (q *Queue) extendLease(ctx context.Context, id string, deadline time.Time) error {
	return q.client.ZAddXX(ctx, q.activeKey(),
		redis.Z{Score: float64(deadline.UnixMilli()), Member: id}).Err()
}

func (q *Queue) markCompleted(ctx context.Context, id string) error {
	now := time.Now().Format(time.RFC3339Nano)
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(id), "state", string(StateCompleted), "processed_at", now)
	pipe.ZRem(ctx, q.activeKey(), id)
	pipe.LPush(ctx, q.completedKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark job %s completed: %w", id, err)
	}
	return q.trim(ctx, q.completedKey(), completedRetention)
}

func (q *Queue) markFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	now := time.Now().Format(time.RFC3339Nano)
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(id),
		"state", string(StateFailed),
		"attempts", attempts,
		"last_error", lastErr,
		"processed_at", now)
	pipe.ZRem(ctx, q.activeKey(), id)
	pipe.LPush(ctx, q.failedKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark job %s failed: %w", id, err)
	}
	return q.trim(ctx, q.failedKey(), failedRetention)
}

// scheduleRetry parks the job in the delayed set until readyAt.
func (q *Queue) scheduleRetry(ctx context.Context, id string, attempts int, lastErr string, readyAt time.Time) error {
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(id),
		"state", string(StateDelayed),
		"attempts", attempts,
		"last_error", lastErr)
	pipe.ZRem(ctx, q.activeKey(), id)
	pipe.ZAdd(ctx, q.delayedKey(), redis.Z{Score: float64(readyAt.UnixMilli()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("schedule retry for job %s: %w", id, err)
	}
	return nil
}

// trim caps a bookkeeping list, deleting the job hashes that fall off the end
// so redis does not accumulate orphaned records.
func (q *Queue) trim(ctx context.Context, key string, keep int64) error {
	evicted, err := q.client.LRange(ctx, key, keep, -1).Result()
	if err != nil {
		return fmt.Errorf("trim %s: %w", key, err)
	}
	if len(evicted) == 0 {
		return nil
	}

	pipe := q.client.TxPipeline()
	pipe.LTrim(ctx, key, 0, keep-1)
	for _, id := range evicted {
		pipe.Del(ctx, q.jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("trim %s: %w", key, err)
	}
	return nil
}
