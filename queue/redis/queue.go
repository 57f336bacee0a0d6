package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-receiver/queue"
	"github.com/redis/go-redis/v9"
)

/* Redis Streams implementation of queue.TaskQueue
 * One stream with a single consumer group gives at-least-once delivery:
 * unacknowledged entries stay pending and are reclaimed from crashed
 * consumers via XAUTOCLAIM
 */

const (
	// StreamKey is the stream holding pending processing tasks
	StreamKey = "received_webhooks:stream"

	// GroupName is the consumer group shared by all workers
	GroupName = "webhook-workers"

	// HeartbeatPrefix prefixes worker heartbeat keys
	HeartbeatPrefix = "worker:heartbeat"

	// reclaimIdle is how long a pending task may sit with a dead consumer
	// before another consumer steals it
	reclaimIdle = 30 * time.Second

	consumeCount = 10
)

type Queue struct {
	client *redis.Client
}

// NewQueue creates a Redis-backed task queue
func NewQueue(addr, password string, db int) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Queue{client: client}, nil
}

// NewQueueWithClient wraps an existing client (shared with metrics collection)
func NewQueueWithClient(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue adds one processing task to the stream
func (q *Queue) Enqueue(ctx context.Context, webhookID string) error {
	q.ensureGroup(ctx)

	_, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		Values: map[string]interface{}{"webhook_id": webhookID},
	}).Result()
	if err != nil {
		return fmt.Errorf("adding to stream: %w", err)
	}
	return nil
}

/* Consume first steals tasks that have been pending with another consumer
 * longer than the reclaim window, then reads new entries. Blocks briefly so
 * worker loops stay responsive to cancellation
 */
func (q *Queue) Consume(ctx context.Context, consumer string) ([]queue.Task, error) {
	q.ensureGroup(ctx)

	claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    GroupName,
		Consumer: consumer,
		MinIdle:  reclaimIdle,
		Start:    "0-0",
		Count:    consumeCount,
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("reclaiming stale tasks: %w", err)
	}
	if len(claimed) > 0 {
		return toTasks(claimed), nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupName,
		Consumer: consumer,
		Streams:  []string{StreamKey, ">"},
		Count:    consumeCount,
		Block:    1 * time.Second,
	}).Result()
	if err == redis.Nil {
		// No messages available
		return []queue.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return []queue.Task{}, nil
	}
	return toTasks(streams[0].Messages), nil
}

// Acknowledge acks and trims a handled task so it is never redelivered
func (q *Queue) Acknowledge(ctx context.Context, task queue.Task) error {
	if err := q.client.XAck(ctx, StreamKey, GroupName, task.ID).Err(); err != nil {
		return fmt.Errorf("acknowledging task: %w", err)
	}
	// Keep the stream bounded; the record of truth lives in the database.
	if err := q.client.XDel(ctx, StreamKey, task.ID).Err(); err != nil {
		return fmt.Errorf("deleting acknowledged task: %w", err)
	}
	return nil
}

// Len returns the number of outstanding tasks in the stream
func (q *Queue) Len(ctx context.Context) (int64, error) {
	length, err := q.client.XLen(ctx, StreamKey).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("getting stream length: %w", err)
	}
	return length, nil
}

// Close closes the Redis connection
func (q *Queue) Close(ctx context.Context) error {
	return q.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (q *Queue) GetClient() *redis.Client {
	return q.client
}

func (q *Queue) ensureGroup(ctx context.Context) {
	q.client.XGroupCreateMkStream(ctx, StreamKey, GroupName, "0")
	// Ignore error if group already exists
}

func toTasks(messages []redis.XMessage) []queue.Task {
	tasks := make([]queue.Task, 0, len(messages))
	for _, msg := range messages {
		webhookID, ok := msg.Values["webhook_id"].(string)
		if !ok {
			continue
		}
		tasks = append(tasks, queue.Task{ID: msg.ID, WebhookID: webhookID})
	}
	return tasks
}
