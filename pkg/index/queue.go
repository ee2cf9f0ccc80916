package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaurya-ahuja/quicknotes-ai/pkg/logging"
)

// Indexing failures never block a meeting from completing; the meeting id is
// parked on a Redis-backed queue instead and picked up by a reindex worker.

const (
	reindexListKey = "quicknotes:reindex:pending"
	reindexSetKey  = "quicknotes:reindex:members"
)

// ReindexQueue is a durable queue of meeting ids awaiting (re)indexing.
// Enqueueing is idempotent per meeting id.
type ReindexQueue struct {
	client *redis.Client
	logger logging.Logger
}

// NewReindexQueue creates a reindex queue on the given Redis client.
func NewReindexQueue(client *redis.Client, logger logging.Logger) *ReindexQueue {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReindexQueue{client: client, logger: logger}
}

// Enqueue parks a meeting id for later indexing. A meeting already queued is
// not queued twice.
func (q *ReindexQueue) Enqueue(ctx context.Context, meetingID string) error {
	added, err := q.client.SAdd(ctx, reindexSetKey, meetingID).Result()
	if err != nil {
		return fmt.Errorf("enqueue reindex: %w", err)
	}
	if added == 0 {
		return nil // already pending
	}
	if err := q.client.LPush(ctx, reindexListKey, meetingID).Err(); err != nil {
		return fmt.Errorf("enqueue reindex: %w", err)
	}
	q.logger.Info("meeting queued for reindex", logging.F("meeting_id", meetingID))
	return nil
}

// Dequeue blocks up to timeout for the next pending meeting id. It returns
// an empty id when the queue stays empty for the whole timeout.
func (q *ReindexQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, reindexListKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("dequeue reindex: %w", err)
	}
	meetingID := res[1]
	if err := q.client.SRem(ctx, reindexSetKey, meetingID).Err(); err != nil {
		return "", fmt.Errorf("dequeue reindex: %w", err)
	}
	return meetingID, nil
}

// Pending reports how many meetings are awaiting reindexing.
func (q *ReindexQueue) Pending(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, reindexListKey).Result()
}

// ReindexFunc rebuilds the index for one meeting.
type ReindexFunc func(ctx context.Context, meetingID string) error

// Worker drains the reindex queue, calling reindex for each meeting id. A
// failed meeting is re-queued so it is retried on a later pass.
type Worker struct {
	queue   *ReindexQueue
	reindex ReindexFunc
	logger  logging.Logger
}

// NewWorker creates a reindex worker.
func NewWorker(queue *ReindexQueue, reindex ReindexFunc, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Worker{queue: queue, reindex: reindex, logger: logger}
}

// Run processes the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		meetingID, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("reindex dequeue failed", logging.Err(err))
			time.Sleep(time.Second)
			continue
		}
		if meetingID == "" {
			continue
		}

		if err := w.reindex(ctx, meetingID); err != nil {
			w.logger.Error("reindex failed, re-queueing",
				logging.F("meeting_id", meetingID),
				logging.Err(err))
			if qErr := w.queue.Enqueue(ctx, meetingID); qErr != nil {
				w.logger.Error("re-queue failed", logging.Err(qErr))
			}
			time.Sleep(time.Second)
			continue
		}

		w.logger.Info("meeting reindexed", logging.F("meeting_id", meetingID))
	}
}
