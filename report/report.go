package report

import (
	"context"

	"github.com/rs/zerolog"
)

/* Structured sink for handled and fatal errors
 * Every report carries the process-wide error context configured at startup
 * plus whatever call-site context the caller attaches, so errors can be
 * correlated with the request or task that produced them
 */

// Severity classifies a reported error
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Reporter is the error-reporting contract used across the system
type Reporter interface {
	Report(ctx context.Context, err error, context map[string]any, severity Severity)
}

// LogReporter reports errors as structured JSON log events
type LogReporter struct {
	logger      zerolog.Logger
	baseContext map[string]string
}

// NewLogReporter creates a reporter over the given logger.
// baseContext is attached to every report for correlation.
func NewLogReporter(logger zerolog.Logger, baseContext map[string]string) *LogReporter {
	return &LogReporter{
		logger:      logger,
		baseContext: baseContext,
	}
}

// Report emits one structured error event
func (r *LogReporter) Report(ctx context.Context, err error, reportCtx map[string]any, severity Severity) {
	evt := r.logger.Error()
	if severity == SeverityWarning {
		evt = r.logger.Warn()
	}
	evt = evt.Err(err).Str("severity", string(severity)).Bool("handled", true)
	for k, v := range r.baseContext {
		evt = evt.Str(k, v)
	}
	if len(reportCtx) > 0 {
		evt = evt.Fields(reportCtx)
	}
	evt.Msg("error reported")
}

// Noop discards all reports. Useful in tests.
type Noop struct{}

func (Noop) Report(context.Context, error, map[string]any, Severity) {}
