package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-receiver/report"
)

/* Service represents the ingestion business logic
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the ingestion operation exposed to the HTTP layer
type UseCase interface {
	Receive(ctx context.Context, serviceID string, req Request) error
}

type Service struct {
	registry *Registry
	repo     Repository
	queue    Enqueuer
	reporter report.Reporter
}

// NewService creates a new ingestion service with dependency injection
func NewService(registry *Registry, repo Repository, queue Enqueuer, reporter report.Reporter) *Service {
	return &Service{
		registry: registry,
		repo:     repo,
		queue:    queue,
		reporter: reporter,
	}
}

/* Receive runs the synchronous half of the pipeline:
 * resolve handler -> active check -> persist (deduped) -> enqueue processing
 * Lookup failures come back as ErrUnknownHandler/ErrHandlerInactive; any
 * failure inside the handler's ingestion step comes back as *HandlerError
 * carrying the handler's expose-errors choice
 */
func (s *Service) Receive(ctx context.Context, serviceID string, req Request) error {
	name, handler, err := s.registry.Resolve(serviceID)
	if err != nil {
		s.reporter.Report(ctx, err, map[string]any{"service_id": serviceID}, report.SeverityError)
		return err
	}

	if !handler.Active() {
		err := fmt.Errorf("%w: %q", ErrHandlerInactive, serviceID)
		s.reporter.Report(ctx, err, map[string]any{"service_id": serviceID, "handler": name}, report.SeverityError)
		return err
	}

	if ing, ok := handler.(Ingestor); ok {
		err = ing.Handle(ctx, s, req)
	} else {
		_, err = s.Ingest(ctx, name, handler, req)
	}
	if err != nil {
		s.reporter.Report(ctx, err, map[string]any{"service_id": serviceID, "handler": name}, report.SeverityError)
		return &HandlerError{
			Handler: name,
			Expose:  handler.ExposeErrorsToSender(),
			Err:     err,
		}
	}

	return nil
}

/* Ingest persists the request as a ReceivedWebhook and enqueues exactly one
 * processing task for it. A duplicate dedup key makes this a no-op: no second
 * record, no second task
 */
func (s *Service) Ingest(ctx context.Context, handlerName string, h Handler, req Request) (IngestResult, error) {
	eventID := DefaultEventID(req)
	if ex, ok := h.(EventIDExtractor); ok {
		extracted, err := ex.ExtractEventID(req)
		if err != nil {
			return IngestResult{}, fmt.Errorf("extracting event id: %w", err)
		}
		eventID = extracted
	}

	now := time.Now()
	wh := ReceivedWebhook{
		ID:             uuid.New().String(),
		HandlerName:    handlerName,
		HandlerEventID: eventID,
		Status:         Received,
		Body:           req.Body,
		Headers:        req.Headers,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	id, created, err := s.repo.Create(ctx, wh)
	if err != nil {
		return IngestResult{}, fmt.Errorf("storing webhook: %w", err)
	}
	if !created {
		// Duplicate delivery of an already recorded event.
		return IngestResult{WebhookID: id, Created: false}, nil
	}

	if err := s.queue.Enqueue(ctx, id); err != nil {
		return IngestResult{}, fmt.Errorf("enqueuing processing task: %w", err)
	}

	return IngestResult{WebhookID: id, Created: true}, nil
}
