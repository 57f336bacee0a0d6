package webhook

import "time"

/* ReceivedWebhook represents one durably recorded inbound webhook event
 * Uses value semantics as it represents data, not behavior
 * The (HandlerName, HandlerEventID) pair is the deduplication key: at most
 * one record exists per logical event, no matter how many times the sender
 * delivers it
 */
type ReceivedWebhook struct {
	ID             string
	HandlerName    string
	HandlerEventID string
	Status         Status
	Body           []byte
	Headers        map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

/* Request is the raw inbound request as seen by handlers
 * ServiceID is only populated during ingestion; a Request rebuilt from a
 * stored record carries the persisted body and headers only
 */
type Request struct {
	ServiceID string
	Body      []byte
	Headers   map[string]string
}

// Request rebuilds the handler-facing request from the stored record
func (w ReceivedWebhook) Request() Request {
	return Request{
		Body:    w.Body,
		Headers: w.Headers,
	}
}
