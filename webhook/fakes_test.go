package webhook_test

import (
	"context"
	"sync"

	"github.com/marcelsud/webhook-receiver/report"
	"github.com/marcelsud/webhook-receiver/webhook"
)

/* In-memory doubles for the repository, queue, and reporter contracts
 * The fake repository implements the same claim semantics as the real one:
 * a mutex-guarded read-check-transition, so concurrency tests exercise the
 * actual locking contract
 */

type fakeRepo struct {
	mu       sync.Mutex
	byID     map[string]webhook.ReceivedWebhook
	dedup    map[string]string // handler_name + "\x00" + handler_event_id -> id
	createErr error
	getErr    error
	claimErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:  make(map[string]webhook.ReceivedWebhook),
		dedup: make(map[string]string),
	}
}

func dedupKey(handlerName, eventID string) string {
	return handlerName + "\x00" + eventID
}

func (r *fakeRepo) Create(ctx context.Context, wh webhook.ReceivedWebhook) (string, bool, error) {
	if r.createErr != nil {
		return "", false, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := dedupKey(wh.HandlerName, wh.HandlerEventID)
	if existing, ok := r.dedup[key]; ok {
		return existing, false, nil
	}
	r.byID[wh.ID] = wh
	r.dedup[key] = wh.ID
	return wh.ID, true, nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (webhook.ReceivedWebhook, error) {
	if r.getErr != nil {
		return webhook.ReceivedWebhook{}, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	wh, ok := r.byID[id]
	if !ok {
		return webhook.ReceivedWebhook{}, webhook.ErrNotFound
	}
	return wh, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id string, status webhook.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wh, ok := r.byID[id]
	if !ok {
		return webhook.ErrNotFound
	}
	wh.Status = status
	r.byID[id] = wh
	return nil
}

func (r *fakeRepo) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	if r.claimErr != nil {
		return false, r.claimErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	wh, ok := r.byID[id]
	if !ok {
		return false, webhook.ErrNotFound
	}
	if wh.Status != webhook.Received {
		return false, nil
	}
	wh.Status = webhook.Processing
	r.byID[id] = wh
	return true, nil
}

func (r *fakeRepo) TransitionStatus(ctx context.Context, id string, from, to webhook.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wh, ok := r.byID[id]
	if !ok || wh.Status != from {
		return false, nil
	}
	wh.Status = to
	r.byID[id] = wh
	return true, nil
}

func (r *fakeRepo) Close(ctx context.Context) error { return nil }

// status reads the stored status for assertions
func (r *fakeRepo) status(id string) webhook.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Status
}

// seed stores a record directly, bypassing dedup bookkeeping
func (r *fakeRepo) seed(wh webhook.ReceivedWebhook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[wh.ID] = wh
	r.dedup[dedupKey(wh.HandlerName, wh.HandlerEventID)] = wh.ID
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []string
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, webhookID string) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, webhookID)
	return nil
}

func (q *fakeQueue) tasks() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.enqueued...)
}

type reportedError struct {
	Err      error
	Context  map[string]any
	Severity report.Severity
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []reportedError
}

func (r *fakeReporter) Report(ctx context.Context, err error, reportCtx map[string]any, severity report.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, reportedError{Err: err, Context: reportCtx, Severity: severity})
}

func (r *fakeReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

/* testHandler is a configurable webhook.Handler
 * processCalls is mutex-guarded so concurrency tests can assert on it
 */
type testHandler struct {
	inactive   bool
	expose     bool
	validErr   error
	invalid    bool
	processErr error

	mu           sync.Mutex
	processCalls int
}

func (h *testHandler) Active() bool               { return !h.inactive }
func (h *testHandler) ExposeErrorsToSender() bool { return h.expose }

func (h *testHandler) Valid(ctx context.Context, req webhook.Request) (bool, error) {
	if h.validErr != nil {
		return false, h.validErr
	}
	return !h.invalid, nil
}

func (h *testHandler) Process(ctx context.Context, wh webhook.ReceivedWebhook) error {
	h.mu.Lock()
	h.processCalls++
	h.mu.Unlock()
	return h.processErr
}

func (h *testHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.processCalls
}

// extractorHandler adds a sender-assigned event id to testHandler
type extractorHandler struct {
	testHandler
	eventID    string
	extractErr error
}

func (h *extractorHandler) ExtractEventID(req webhook.Request) (string, error) {
	if h.extractErr != nil {
		return "", h.extractErr
	}
	return h.eventID, nil
}

// singleton returns a factory that always hands out the same instance
func singleton(h webhook.Handler) webhook.Factory {
	return func() webhook.Handler { return h }
}
