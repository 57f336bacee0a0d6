package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/webhook-receiver/queue"
	"github.com/marcelsud/webhook-receiver/report"
	"github.com/marcelsud/webhook-receiver/webhook"
	"github.com/marcelsud/webhook-receiver/worker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* The fake queue serves its tasks once, then cancels the run context so the
 * worker loop terminates. Acknowledged task ids are recorded for assertions
 */
type fakeQueue struct {
	mu     sync.Mutex
	tasks  []queue.Task
	acked  []string
	served bool
	cancel context.CancelFunc
}

func (q *fakeQueue) Enqueue(ctx context.Context, webhookID string) error { return nil }

func (q *fakeQueue) Consume(ctx context.Context, consumer string) ([]queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.served {
		q.cancel()
		return nil, nil
	}
	q.served = true
	return q.tasks, nil
}

func (q *fakeQueue) Acknowledge(ctx context.Context, task queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, task.ID)
	return nil
}

func (q *fakeQueue) Close(ctx context.Context) error { return nil }

func (q *fakeQueue) ackedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

// stubProcessor returns a fixed error for every task
type stubProcessor struct {
	mu        sync.Mutex
	err       error
	processed []string
}

func (p *stubProcessor) Process(ctx context.Context, webhookID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, webhookID)
	return p.err
}

type countingReporter struct {
	mu      sync.Mutex
	reports int
}

func (r *countingReporter) Report(ctx context.Context, err error, reportCtx map[string]any, severity report.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports++
}

func (r *countingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reports
}

func runWorker(t *testing.T, q *fakeQueue, p worker.Processor, r report.Reporter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.cancel = cancel

	w := worker.New(q, p, r, zerolog.Nop())
	require.NoError(t, w.Run(ctx))
}

func TestWorker_Run(t *testing.T) {
	t.Run("successful task is acknowledged", func(t *testing.T) {
		q := &fakeQueue{tasks: []queue.Task{{ID: "1-0", WebhookID: "wh-1"}}}
		p := &stubProcessor{}

		runWorker(t, q, p, report.Noop{})

		assert.Equal(t, []string{"wh-1"}, p.processed)
		assert.Equal(t, []string{"1-0"}, q.ackedIDs())
	})

	t.Run("discarded task is reported and acknowledged", func(t *testing.T) {
		q := &fakeQueue{tasks: []queue.Task{{ID: "1-0", WebhookID: "wh-1"}}}
		p := &stubProcessor{err: webhook.Discard(errors.New("record gone"))}
		r := &countingReporter{}

		runWorker(t, q, p, r)

		assert.Equal(t, []string{"1-0"}, q.ackedIDs())
		assert.Equal(t, 1, r.count())
	})

	t.Run("retriable failure leaves the task pending", func(t *testing.T) {
		q := &fakeQueue{tasks: []queue.Task{{ID: "1-0", WebhookID: "wh-1"}}}
		p := &stubProcessor{err: errors.New("database unavailable")}
		r := &countingReporter{}

		runWorker(t, q, p, r)

		assert.Equal(t, []string{"wh-1"}, p.processed)
		assert.Empty(t, q.ackedIDs())
		// Retriable failures are logged, not reported.
		assert.Equal(t, 0, r.count())
	})

	t.Run("all tasks in a batch are handled", func(t *testing.T) {
		q := &fakeQueue{tasks: []queue.Task{
			{ID: "1-0", WebhookID: "wh-1"},
			{ID: "2-0", WebhookID: "wh-2"},
			{ID: "3-0", WebhookID: "wh-3"},
		}}
		p := &stubProcessor{}

		runWorker(t, q, p, report.Noop{})

		assert.Len(t, p.processed, 3)
		assert.Len(t, q.ackedIDs(), 3)
	})
}
