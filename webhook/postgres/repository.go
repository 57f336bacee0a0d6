package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/marcelsud/webhook-receiver/webhook"
)

/* PostgreSQL implementation of webhook.Repository
 * The received_webhooks table is the single shared mutable resource of the
 * system; the claim operation below is the row-level lock the processing
 * task relies on for its at-most-one-processing guarantee
 */

type Repository struct {
	DB *sql.DB
}

// NewRepository creates a PostgreSQL repository with the default pool (25, 5, 5 min)
func NewRepository(connectionString string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(connectionString, 25, 5, 5)
}

// NewRepositoryWithPoolConfig creates a PostgreSQL repository with a custom pool.
// maxOpenConns: max simultaneous connections (0 = unlimited)
// maxIdleConns: max idle connections kept in the pool
// maxLifeMinutes: max minutes a connection may be reused
func NewRepositoryWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Repository{DB: db}, nil
}

/* Create inserts the record, relying on the unique composite index on
 * (handler_name, handler_event_id) for deduplication. A conflicting insert
 * is a no-op; the existing record's id is returned with created=false
 */
func (r *Repository) Create(ctx context.Context, wh webhook.ReceivedWebhook) (string, bool, error) {
	headersJSON, err := marshalHeaders(wh.Headers)
	if err != nil {
		return "", false, fmt.Errorf("marshaling headers: %w", err)
	}

	query := `
		INSERT INTO received_webhooks (id, handler_name, handler_event_id, status, body, request_headers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (handler_name, handler_event_id) DO NOTHING
		RETURNING id
	`

	var id string
	err = r.DB.QueryRowContext(ctx, query,
		wh.ID,
		wh.HandlerName,
		wh.HandlerEventID,
		wh.Status.String(),
		wh.Body,
		headersJSON,
		wh.CreatedAt,
		wh.UpdatedAt,
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("inserting webhook: %w", err)
	}

	// Conflict: look up the record that owns the dedup key.
	existing := `SELECT id FROM received_webhooks WHERE handler_name = $1 AND handler_event_id = $2`
	if err := r.DB.QueryRowContext(ctx, existing, wh.HandlerName, wh.HandlerEventID).Scan(&id); err != nil {
		return "", false, fmt.Errorf("selecting existing webhook: %w", err)
	}
	return id, false, nil
}

// Get retrieves a webhook record by id
func (r *Repository) Get(ctx context.Context, id string) (webhook.ReceivedWebhook, error) {
	query := `
		SELECT id, handler_name, handler_event_id, status, body, request_headers, created_at, updated_at
		FROM received_webhooks
		WHERE id = $1
	`

	var wh webhook.ReceivedWebhook
	var status string
	var headersJSON []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&wh.ID,
		&wh.HandlerName,
		&wh.HandlerEventID,
		&status,
		&wh.Body,
		&headersJSON,
		&wh.CreatedAt,
		&wh.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return webhook.ReceivedWebhook{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.ReceivedWebhook{}, fmt.Errorf("selecting webhook: %w", err)
	}

	wh.Status = webhook.NewStatus(status)
	wh.Headers, err = unmarshalHeaders(headersJSON)
	if err != nil {
		return webhook.ReceivedWebhook{}, fmt.Errorf("unmarshaling headers: %w", err)
	}

	return wh, nil
}

/* ClaimForProcessing implements the lock-guarded received->processing
 * transition in one short transaction:
 *
 *   SELECT ... FOR UPDATE    -- blocks until any competing worker commits
 *   status == received?      -- false when another worker already progressed it
 *   UPDATE ... 'processing'
 *
 * The transaction covers only the status read-and-transition; handler code
 * never runs while the row is locked
 */
func (r *Repository) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM received_webhooks WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return false, webhook.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("locking webhook row: %w", err)
	}

	if webhook.NewStatus(status) != webhook.Received {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE received_webhooks SET status = $1, updated_at = now() WHERE id = $2`, webhook.Processing.String(), id); err != nil {
		return false, fmt.Errorf("transitioning to processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing claim: %w", err)
	}
	return true, nil
}

// TransitionStatus sets the status to `to` only if it is currently `from`
func (r *Repository) TransitionStatus(ctx context.Context, id string, from, to webhook.Status) (bool, error) {
	query := `UPDATE received_webhooks SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`

	result, err := r.DB.ExecContext(ctx, query, to.String(), id, from.String())
	if err != nil {
		return false, fmt.Errorf("transitioning status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows > 0, nil
}

// UpdateStatus sets the status unconditionally
func (r *Repository) UpdateStatus(ctx context.Context, id string, status webhook.Status) error {
	query := `UPDATE received_webhooks SET status = $1, updated_at = now() WHERE id = $2`

	result, err := r.DB.ExecContext(ctx, query, status.String(), id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// CreateTable creates the received_webhooks table (useful for tests and bootstrap)
func (r *Repository) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS received_webhooks (
			id TEXT PRIMARY KEY,
			handler_name TEXT NOT NULL,
			handler_event_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'received',
			body BYTEA NOT NULL,
			request_headers JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS webhook_dedup_idx ON received_webhooks (handler_name, handler_event_id);
		CREATE INDEX IF NOT EXISTS received_webhooks_status_idx ON received_webhooks (status);
	`

	if _, err := r.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating received_webhooks table: %w", err)
	}
	return nil
}
