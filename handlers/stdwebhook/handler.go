package stdwebhook

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/marcelsud/webhook-receiver/webhook"
	"github.com/marcelsud/webhook-receiver/webhook/signature"
)

const (
	// Standard Webhooks header names, matched case-insensitively via canonical form
	HeaderID        = "Webhook-Id"
	HeaderTimestamp = "Webhook-Timestamp"
	HeaderSignature = "Webhook-Signature"

	// DefaultTolerance bounds the accepted clock skew on the timestamp header
	DefaultTolerance = 5 * time.Minute
)

/* Handler validates inbound requests against the Standard Webhooks signing
 * scheme: v1 HMAC-SHA256 over {id}.{timestamp}.{body}. The webhook-id header
 * doubles as the dedup key, so redeliveries of a signed event collapse onto
 * one record
 */
type Handler struct {
	secrets   []signature.Secret
	tolerance time.Duration
	expose    bool
	active    bool
	process   func(ctx context.Context, wh webhook.ReceivedWebhook) error
}

// Options configures a Standard Webhooks handler
type Options struct {
	// Secrets are the accepted signing secrets, newest first. More than one
	// entry keeps old deliveries verifiable during secret rotation.
	Secrets []signature.Secret

	// Tolerance bounds the timestamp skew; zero means DefaultTolerance
	Tolerance time.Duration

	// ExposeErrorsToSender surfaces ingestion errors in the HTTP response
	ExposeErrorsToSender bool

	// Inactive makes the endpoint reject requests with 503
	Inactive bool

	// Process runs for each validated webhook; nil means accept and store only
	Process func(ctx context.Context, wh webhook.ReceivedWebhook) error
}

// New creates a handler verifying Standard Webhooks signatures
func New(opts Options) (*Handler, error) {
	if len(opts.Secrets) == 0 {
		return nil, fmt.Errorf("at least one signing secret is required")
	}

	tolerance := opts.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	return &Handler{
		secrets:   opts.Secrets,
		tolerance: tolerance,
		expose:    opts.ExposeErrorsToSender,
		active:    !opts.Inactive,
		process:   opts.Process,
	}, nil
}

func (h *Handler) Active() bool {
	return h.active
}

func (h *Handler) ExposeErrorsToSender() bool {
	return h.expose
}

/* Valid checks the three Standard Webhooks headers. Missing headers, a
 * timestamp outside the tolerance window, and a signature mismatch are all
 * validation failures, not errors: the record lands in failed_validation
 * and the sender's retries with the same bad signature stay harmless
 */
func (h *Handler) Valid(ctx context.Context, req webhook.Request) (bool, error) {
	msgID := req.Headers[HeaderID]
	tsHeader := req.Headers[HeaderTimestamp]
	sigHeader := req.Headers[HeaderSignature]
	if msgID == "" || tsHeader == "" || sigHeader == "" {
		return false, nil
	}

	unix, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return false, nil
	}
	timestamp := time.Unix(unix, 0)

	skew := time.Since(timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew > h.tolerance {
		return false, nil
	}

	return signature.Verify(h.secrets, msgID, timestamp, req.Body, sigHeader)
}

// Process runs the configured callback, if any
func (h *Handler) Process(ctx context.Context, wh webhook.ReceivedWebhook) error {
	if h.process == nil {
		return nil
	}
	return h.process(ctx, wh)
}

// ExtractEventID uses the sender-assigned webhook-id as the dedup key
func (h *Handler) ExtractEventID(req webhook.Request) (string, error) {
	msgID := req.Headers[HeaderID]
	if msgID == "" {
		return "", fmt.Errorf("missing %s header", HeaderID)
	}
	return msgID, nil
}
