package webhook

import "context"

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// Reader provides read operations for received webhooks
type Reader interface {
	/* Context is always the first parameter in functions that do I/O
	 * This allows for cancellation, timeouts, and shared values
	 */
	Get(ctx context.Context, id string) (ReceivedWebhook, error)
}

// Writer provides write operations for received webhooks
type Writer interface {
	/* Create persists a webhook, enforcing the dedup uniqueness constraint
	 * on (handler name, handler event id). Returns the id of the record
	 * that owns the dedup key and whether this call created it; a duplicate
	 * delivery returns the existing id with created=false and is not an error
	 */
	Create(ctx context.Context, wh ReceivedWebhook) (string, bool, error)

	// UpdateStatus sets the status unconditionally
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// Locker provides the lock-guarded status transitions of the state machine
type Locker interface {
	/* ClaimForProcessing acquires an exclusive row lock on the record and,
	 * only if its status is still Received, transitions it to Processing.
	 * Returns false when another worker already progressed the record.
	 * The lock is scoped to this call alone: handler code never runs under it
	 */
	ClaimForProcessing(ctx context.Context, id string) (bool, error)

	/* TransitionStatus sets the status to `to` only if it is currently
	 * `from`; returns whether the transition happened
	 */
	TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error)
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Repository interface {
	Reader
	Writer
	Locker
	Close(ctx context.Context) error
}

/* Enqueuer schedules the async processing task for a stored webhook
 * The backing task queue must deliver at least once; idempotence under
 * redelivery is the Processor's job, not the queue's
 */
type Enqueuer interface {
	Enqueue(ctx context.Context, webhookID string) error
}
