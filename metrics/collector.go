package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	redisq "github.com/marcelsud/webhook-receiver/queue/redis"
	"github.com/marcelsud/webhook-receiver/webhook"
)

/* StoreCollector gathers metrics from both halves of the pipeline:
 * status counts and throughput from the database (served by the status
 * index), queue depth and worker liveness from the Redis task queue
 */
type StoreCollector struct {
	db    *sql.DB
	queue *redisq.Queue
}

// NewStoreCollector creates a metrics collector over the store and the queue
func NewStoreCollector(db *sql.DB, queue *redisq.Queue) *StoreCollector {
	return &StoreCollector{
		db:    db,
		queue: queue,
	}
}

// Collect gathers all metrics
func (c *StoreCollector) Collect(ctx context.Context) (Metrics, error) {
	queueLength, err := c.GetQueueLength(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting queue length: %w", err)
	}

	statusCounts, err := c.GetStatusCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting status counts: %w", err)
	}

	throughput, err := c.GetThroughput(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting throughput: %w", err)
	}

	workers, err := c.GetActiveWorkers(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting active workers: %w", err)
	}

	return Metrics{
		QueueLength:  queueLength,
		StatusCounts: statusCounts,
		Throughput:   throughput,
		Workers:      workers,
		Timestamp:    time.Now(),
	}, nil
}

// GetQueueLength returns the number of outstanding tasks in the stream
func (c *StoreCollector) GetQueueLength(ctx context.Context) (int64, error) {
	return c.queue.Len(ctx)
}

// GetStatusCounts returns counts of webhooks grouped by status
func (c *StoreCollector) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	statusCounts := map[string]int64{
		webhook.Received.String():         0,
		webhook.Processing.String():       0,
		webhook.Processed.String():        0,
		webhook.FailedValidation.String(): 0,
		webhook.Errored.String():          0,
	}

	rows, err := c.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM received_webhooks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting webhooks by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		statusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	return statusCounts, nil
}

// GetThroughput returns webhooks that reached a terminal state per time window
func (c *StoreCollector) GetThroughput(ctx context.Context) (ThroughputMetrics, error) {
	var throughput ThroughputMetrics

	windows := []struct {
		duration time.Duration
		target   *int64
	}{
		{1 * time.Minute, &throughput.LastMinute},
		{5 * time.Minute, &throughput.LastFiveMinutes},
		{15 * time.Minute, &throughput.LastFifteenMinutes},
	}

	query := `SELECT COUNT(*) FROM received_webhooks WHERE status = $1 AND updated_at > $2`
	for _, window := range windows {
		since := time.Now().Add(-window.duration)
		if err := c.db.QueryRowContext(ctx, query, webhook.Processed.String(), since).Scan(window.target); err != nil {
			return ThroughputMetrics{}, fmt.Errorf("counting processed webhooks: %w", err)
		}
	}

	return throughput, nil
}

// GetActiveWorkers returns the workers with a live heartbeat
func (c *StoreCollector) GetActiveWorkers(ctx context.Context) ([]WorkerInfo, error) {
	heartbeats, err := c.queue.GetActiveWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting worker heartbeats: %w", err)
	}

	workers := make([]WorkerInfo, 0, len(heartbeats))
	for _, hb := range heartbeats {
		workers = append(workers, WorkerInfo{
			WorkerID:      hb.WorkerID,
			Status:        hb.Status,
			LastHeartbeat: hb.LastHeartbeat,
		})
	}
	return workers, nil
}
