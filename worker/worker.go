package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-receiver/queue"
	"github.com/marcelsud/webhook-receiver/report"
	"github.com/marcelsud/webhook-receiver/webhook"
	"github.com/rs/zerolog"
)

/* Worker drives the external task-runner side of the pipeline: it consumes
 * tasks from the queue and routes each outcome
 *
 *   success          -> acknowledge
 *   discardable fail -> report, acknowledge (never retried)
 *   retriable fail   -> leave pending, redelivered after the reclaim window
 */

// Processor executes one processing task for a stored webhook
type Processor interface {
	Process(ctx context.Context, webhookID string) error
}

// Heartbeater is implemented by queues that track live workers for metrics
type Heartbeater interface {
	SetWorkerHeartbeat(ctx context.Context, workerID, status string) error
}

type Worker struct {
	id        string
	queue     queue.TaskQueue
	processor Processor
	reporter  report.Reporter
	logger    zerolog.Logger
}

// New creates a worker with a unique consumer id
func New(q queue.TaskQueue, processor Processor, reporter report.Reporter, logger zerolog.Logger) *Worker {
	id := fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	return &Worker{
		id:        id,
		queue:     q,
		processor: processor,
		reporter:  reporter,
		logger:    logger.With().Str("worker_id", id).Logger(),
	}
}

// ID returns the worker's consumer id
func (w *Worker) ID() string {
	return w.id
}

// Run consumes tasks until the context is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker started")
	w.heartbeat(ctx, "idle")

	lastHeartbeat := time.Now()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopping")
			return nil
		default:
		}

		if time.Since(lastHeartbeat) > 30*time.Second {
			w.heartbeat(ctx, "idle")
			lastHeartbeat = time.Now()
		}

		tasks, err := w.queue.Consume(ctx, w.id)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error().Err(err).Msg("consuming tasks")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, task := range tasks {
			w.handle(ctx, task)
		}
	}
}

func (w *Worker) handle(ctx context.Context, task queue.Task) {
	w.heartbeat(ctx, "processing")
	defer w.heartbeat(ctx, "idle")

	err := w.processor.Process(ctx, task.WebhookID)
	switch {
	case err == nil:
		w.ack(ctx, task)
	case webhook.IsDiscard(err):
		// Non-retriable: report with the task identity and swallow the retry.
		w.reporter.Report(ctx, err, map[string]any{
			"task_id":   task.ID,
			"arguments": fmt.Sprintf("[%q]", task.WebhookID),
		}, report.SeverityError)
		w.ack(ctx, task)
	default:
		// Retriable: leave the task pending so it is reclaimed later.
		w.logger.Error().Err(err).
			Str("task_id", task.ID).
			Str("webhook_id", task.WebhookID).
			Msg("processing failed, task will be retried")
	}
}

func (w *Worker) ack(ctx context.Context, task queue.Task) {
	if err := w.queue.Acknowledge(ctx, task); err != nil {
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("acknowledging task")
	}
}

func (w *Worker) heartbeat(ctx context.Context, status string) {
	hb, ok := w.queue.(Heartbeater)
	if !ok {
		return
	}
	if err := hb.SetWorkerHeartbeat(ctx, w.id, status); err != nil {
		w.logger.Warn().Err(err).Msg("setting heartbeat")
	}
}
