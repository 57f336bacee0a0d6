package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

/* Handler is the capability contract every webhook handler implements
 * Handlers are stateless from the registry's perspective: a fresh instance
 * is produced per request by the registered factory
 */
type Handler interface {
	// Active reports whether the handler currently accepts requests.
	// Inactive handlers are rejected at the endpoint before any record is created.
	Active() bool

	// ExposeErrorsToSender governs whether unexpected ingestion errors are
	// surfaced in the synchronous HTTP response or concealed behind a generic message.
	ExposeErrorsToSender() bool

	// Valid is the validation predicate evaluated during async processing,
	// before Process runs. Returning false marks the record failed_validation.
	Valid(ctx context.Context, req Request) (bool, error)

	// Process performs the side-effecting work for a validated record.
	Process(ctx context.Context, wh ReceivedWebhook) error
}

/* EventIDExtractor is an optional capability: handlers that know the
 * sender's event identifier implement it so duplicate deliveries of the
 * same logical event collapse onto one record. Handlers without it get the
 * content-hash default
 */
type EventIDExtractor interface {
	ExtractEventID(req Request) (string, error)
}

/* Ingestor is an optional capability: handlers that need full control over
 * the persistence step implement it. The sink enforces the dedup invariant
 * and enqueues the processing task for newly created records
 */
type Ingestor interface {
	Handle(ctx context.Context, sink IngestSink, req Request) error
}

// IngestSink persists a received webhook and schedules its processing
type IngestSink interface {
	Ingest(ctx context.Context, handlerName string, h Handler, req Request) (IngestResult, error)
}

// IngestResult reports the outcome of persisting one inbound request
type IngestResult struct {
	WebhookID string
	// Created is false when the dedup key already existed; duplicate
	// deliveries are a no-op, not an error
	Created bool
}

// DefaultEventID derives a dedup key from the payload content
func DefaultEventID(req Request) string {
	sum := sha256.Sum256(req.Body)
	return hex.EncodeToString(sum[:])
}
