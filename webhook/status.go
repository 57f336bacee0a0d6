package webhook

import "fmt"

/* Status represents the processing state of a received webhook
 * Lifecycle: Received -> Processing -> Processed/FailedValidation/Errored
 * Processed, FailedValidation and Errored are terminal
 */
type Status int

const (
	Received Status = iota + 1
	Processing
	Processed
	FailedValidation
	Errored
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Received:
		return "received"
	case Processing:
		return "processing"
	case Processed:
		return "processed"
	case FailedValidation:
		return "failed_validation"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

// NewStatus creates a Status from a string
func NewStatus(str string) Status {
	switch str {
	case "received":
		return Received
	case "processing":
		return Processing
	case "processed":
		return Processed
	case "failed_validation":
		return FailedValidation
	case "error":
		return Errored
	default:
		return Received
	}
}

// Validate checks if the status is valid
func (s Status) Validate() error {
	if s < Received || s > Errored {
		return fmt.Errorf("invalid status: %d", s)
	}
	return nil
}

// IsFinal returns true if the status is a terminal state
func (s Status) IsFinal() bool {
	return s == Processed || s == FailedValidation || s == Errored
}
