package webhook

import (
	"errors"
	"fmt"
)

/* Lookup and processing failures are explicit error-kind values matched
 * with errors.Is/As by the callers, never panics or sentinel strings
 */

var (
	// ErrUnknownHandler means no handler is bound to the service id
	ErrUnknownHandler = errors.New("no handler found")

	// ErrHandlerInactive means the bound handler reports itself inactive
	ErrHandlerInactive = errors.New("webhook handler is inactive")

	// ErrNotFound means the referenced webhook record does not exist
	ErrNotFound = errors.New("webhook not found")

	// ErrInvalidWebhookArgument means the processing task was invoked with a
	// missing or malformed webhook reference
	ErrInvalidWebhookArgument = errors.New("invalid webhook argument")
)

/* HandlerError wraps a failure raised while a handler was ingesting a
 * request. Expose carries the handler's ExposeErrorsToSender choice so the
 * HTTP layer can decide between surfacing and concealing the detail
 */
type HandlerError struct {
	Handler string
	Expose  bool
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s: %v", e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

/* DiscardError marks a processing failure as non-retriable: the task runner
 * must acknowledge the task instead of redelivering it, because no valid
 * target exists (deleted record, malformed argument)
 */
type DiscardError struct {
	Err error
}

func (e *DiscardError) Error() string {
	return fmt.Sprintf("discarding task: %v", e.Err)
}

func (e *DiscardError) Unwrap() error {
	return e.Err
}

// Discard wraps err as non-retriable
func Discard(err error) error {
	return &DiscardError{Err: err}
}

// IsDiscard reports whether err requires the task to be discarded, not retried
func IsDiscard(err error) bool {
	var de *DiscardError
	return errors.As(err, &de)
}
