package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marcelsud/webhook-receiver/report"
	"github.com/rs/zerolog"
)

/* Processor is the asynchronous half of the pipeline
 * It is invoked at least once per enqueued record and must stay correct when
 * invoked many times for the same record, concurrently or sequentially: the
 * row lock plus the Received status guard make sure at most one invocation
 * runs the handler
 */
type Processor struct {
	repo     Repository
	registry *Registry
	reporter report.Reporter
	logger   zerolog.Logger
}

// NewProcessor creates a processing task executor
func NewProcessor(repo Repository, registry *Registry, reporter report.Reporter, logger zerolog.Logger) *Processor {
	return &Processor{
		repo:     repo,
		registry: registry,
		reporter: reporter,
		logger:   logger,
	}
}

/* Process advances one record through the state machine:
 *
 *   received --(claimed)--> processing
 *   processing --(valid, process ok)--> processed
 *   processing --(not valid)--> failed_validation
 *   any non-terminal --(failure)--> error
 *
 * A wrapped DiscardError means the task must not be retried (no valid
 * target); any other error is returned for the runner's retry policy
 */
func (p *Processor) Process(ctx context.Context, webhookID string) error {
	if strings.TrimSpace(webhookID) == "" {
		err := fmt.Errorf("%w: empty webhook id", ErrInvalidWebhookArgument)
		p.reporter.Report(ctx, err, map[string]any{"arguments": fmt.Sprintf("%q", webhookID)}, report.SeverityError)
		return Discard(err)
	}

	wh, err := p.repo.Get(ctx, webhookID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("loading webhook %s: %w", webhookID, err)
		}
		// The record was deleted between enqueue and run. Nothing to retry against.
		err = fmt.Errorf("deserializing webhook %s: %w", webhookID, err)
		p.reporter.Report(ctx, err, map[string]any{"webhook_id": webhookID}, report.SeverityError)
		return Discard(err)
	}

	handler, err := p.registry.Handler(wh.HandlerName)
	if err != nil {
		// Retrying cannot succeed until the registry changes; keep the audit
		// trail honest and discard.
		p.markErrored(ctx, wh.ID)
		p.reporter.Report(ctx, err, map[string]any{"webhook_id": wh.ID, "handler": wh.HandlerName}, report.SeverityError)
		return Discard(err)
	}

	claimed, err := p.repo.ClaimForProcessing(ctx, wh.ID)
	if err != nil {
		return fmt.Errorf("claiming webhook %s: %w", wh.ID, err)
	}
	if !claimed {
		p.logger.Info().
			Str("webhook_id", wh.ID).
			Str("handler", wh.HandlerName).
			Msg("webhook is being processed elsewhere or already finished, skipping")
		return nil
	}

	// The row lock is released; handler code runs unlocked from here on.
	valid, err := handler.Valid(ctx, wh.Request())
	if err != nil {
		return p.fail(ctx, wh, fmt.Errorf("validating webhook %s: %w", wh.ID, err))
	}
	if !valid {
		if err := p.repo.UpdateStatus(ctx, wh.ID, FailedValidation); err != nil {
			return p.fail(ctx, wh, fmt.Errorf("marking webhook %s failed_validation: %w", wh.ID, err))
		}
		p.logger.Info().
			Str("webhook_id", wh.ID).
			Str("handler", wh.HandlerName).
			Msg("webhook did not pass handler validation")
		return nil
	}

	p.logger.Info().
		Str("webhook_id", wh.ID).
		Str("handler", wh.HandlerName).
		Msg("starting to process webhook")

	if err := handler.Process(ctx, wh); err != nil {
		return p.fail(ctx, wh, fmt.Errorf("processing webhook %s: %w", wh.ID, err))
	}

	// Defensive re-check: only finalize if no concurrent transition happened.
	if _, err := p.repo.TransitionStatus(ctx, wh.ID, Processing, Processed); err != nil {
		return p.fail(ctx, wh, fmt.Errorf("marking webhook %s processed: %w", wh.ID, err))
	}

	p.logger.Info().
		Str("webhook_id", wh.ID).
		Str("handler", wh.HandlerName).
		Msg("webhook processed")
	return nil
}

/* fail records the terminal error state, reports, and returns the error so
 * the task runner's retry/alerting policy stays in effect. A retried task
 * finds the record past Received and skips, so the retry is harmless
 */
func (p *Processor) fail(ctx context.Context, wh ReceivedWebhook, err error) error {
	p.markErrored(ctx, wh.ID)
	p.reporter.Report(ctx, err, map[string]any{"webhook_id": wh.ID, "handler": wh.HandlerName}, report.SeverityError)
	return err
}

func (p *Processor) markErrored(ctx context.Context, id string) {
	if err := p.repo.UpdateStatus(ctx, id, Errored); err != nil {
		p.logger.Error().Err(err).Str("webhook_id", id).Msg("could not mark webhook as errored")
	}
}
