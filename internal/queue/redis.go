package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gilbertyin/Jurni/internal/config"
	"github.com/gilbertyin/Jurni/internal/domain"
)

// RedisQueue is a Queue backed by a Redis list, with a sorted set holding
// delayed retries and a separate list for dead-lettered jobs.
type RedisQueue struct {
	client     *redis.Client
	key        string
	delayedKey string
	deadKey    string
	maxRetries int
	popTimeout time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewRedis connects to Redis and returns a queue bound to cfg.QueueKey.
func NewRedis(cfg config.RedisConfig, retryDelay time.Duration, logger *slog.Logger) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisQueue{
		client:     client,
		key:        cfg.QueueKey,
		delayedKey: cfg.QueueKey + ":delayed",
		deadKey:    cfg.QueueKey + ":dead",
		maxRetries: cfg.MaxRetries,
		popTimeout: cfg.PopTimeout,
		retryDelay: retryDelay,
		logger:     logger.With("component", "queue"),
	}, nil
}

// Close releases the underlying Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Enqueue pushes the job onto the main list.
func (q *RedisQueue) Enqueue(ctx context.Context, msg domain.JobMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", msg.JobID, err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", msg.JobID, err)
	}
	q.logger.Info("job enqueued", "job_id", msg.JobID, "video_url", msg.VideoURL)
	return nil
}

// Dequeue pops the oldest job off the main list, blocking up to the
// configured pop timeout.
func (q *RedisQueue) Dequeue(ctx context.Context) (domain.JobMessage, error) {
	res, err := q.client.BRPop(ctx, q.popTimeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.JobMessage{}, domain.ErrNoJobs
	}
	if err != nil {
		return domain.JobMessage{}, fmt.Errorf("dequeue: %w", err)
	}

	// BRPop returns [key, value].
	var msg domain.JobMessage
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return domain.JobMessage{}, fmt.Errorf("decode job payload: %w", err)
	}
	return msg, nil
}

// disposition is what happens to a job after an attempt.
type disposition int

const (
	ack        disposition = iota // done, nothing to keep
	drop                         // record already settled elsewhere, discard
	deadLetter                   // park for operator replay
	retryLater                   // schedule a delayed redelivery
)

// route decides a job's fate from its processing outcome. attempts counts
// the attempt that just finished. A record the pipeline drove to failed
// already carries its outcome and its stage retries are spent, so such
// jobs dead-letter immediately. A redelivery of an already-settled record
// is dropped. Only infrastructure failures, where the record never
// reached a terminal state, earn a delayed retry while attempts remain.
func route(procErr error, attempts, maxRetries int) disposition {
	if procErr == nil {
		return ack
	}
	if errors.Is(procErr, domain.ErrInvalidTransition) {
		return drop
	}
	var stageErr *domain.StageError
	if errors.As(procErr, &stageErr) && stageErr.Stage != domain.StageTransition {
		return deadLetter
	}
	if attempts >= maxRetries {
		return deadLetter
	}
	return retryLater
}

// Report acknowledges a successful job, or routes a failed one per route.
func (q *RedisQueue) Report(ctx context.Context, msg domain.JobMessage, procErr error) error {
	switch route(procErr, msg.Attempts+1, q.maxRetries) {
	case ack:
		return nil

	case drop:
		q.logger.Warn("dropping job for record already past this transition",
			"job_id", msg.JobID, "error", procErr,
		)
		return nil

	case deadLetter:
		msg.Attempts++
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal job %s: %w", msg.JobID, err)
		}
		if err := q.client.LPush(ctx, q.deadKey, data).Err(); err != nil {
			return fmt.Errorf("dead-letter job %s: %w", msg.JobID, err)
		}
		q.logger.Error("job dead-lettered",
			"job_id", msg.JobID,
			"attempts", msg.Attempts,
			"error", procErr,
		)
		return nil

	default:
		msg.Attempts++
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal job %s: %w", msg.JobID, err)
		}
		readyAt := time.Now().Add(q.RetryDelay(msg.Attempts))
		if err := q.client.ZAdd(ctx, q.delayedKey, redis.Z{
			Score:  float64(readyAt.UnixMilli()),
			Member: data,
		}).Err(); err != nil {
			return fmt.Errorf("delay job %s: %w", msg.JobID, err)
		}
		q.logger.Warn("job scheduled for retry",
			"job_id", msg.JobID,
			"attempt", msg.Attempts,
			"ready_at", readyAt,
			"error", procErr,
		)
		return nil
	}
}

// RetryDelay returns how long a job waits before its next attempt. The
// delay doubles with each failure.
func (q *RedisQueue) RetryDelay(attempts int) time.Duration {
	delay := q.retryDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}

// PromoteDue moves delayed jobs whose retry time has arrived back onto the
// main list. It returns the number of jobs promoted.
func (q *RedisQueue) PromoteDue(ctx context.Context) (int, error) {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	members, err := q.client.ZRangeByScore(ctx, q.delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan delayed jobs: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	promoted := 0
	for _, member := range members {
		// Remove first so a concurrent promoter cannot double-deliver.
		removed, err := q.client.ZRem(ctx, q.delayedKey, member).Result()
		if err != nil {
			return promoted, fmt.Errorf("remove delayed job: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.key, member).Err(); err != nil {
			return promoted, fmt.Errorf("promote delayed job: %w", err)
		}
		promoted++
	}
	if promoted > 0 {
		q.logger.Info("delayed jobs promoted", "count", promoted)
	}
	return promoted, nil
}
