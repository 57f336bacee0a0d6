package queue

import "context"

/* TaskQueue is the at-least-once delivery contract between the ingestion
 * side (Enqueue) and the worker side (Consume/Acknowledge)
 * A consumed task that is never acknowledged is redelivered to a later
 * Consume call; acknowledging a task is the "discard, do not retry" signal
 */

// Task is one processing task delivered to a worker
type Task struct {
	// ID identifies the delivery (not the webhook) for acknowledgement
	ID string

	// WebhookID references the stored ReceivedWebhook to process
	WebhookID string
}

type TaskQueue interface {
	// Enqueue schedules processing for a stored webhook
	Enqueue(ctx context.Context, webhookID string) error

	/* Consume returns the next batch of tasks for the named consumer,
	 * including stale tasks abandoned by crashed consumers. Returns an
	 * empty slice when nothing is available
	 */
	Consume(ctx context.Context, consumer string) ([]Task, error)

	// Acknowledge marks a task as handled so it is never redelivered
	Acknowledge(ctx context.Context, task Task) error

	Close(ctx context.Context) error
}
