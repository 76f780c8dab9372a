package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

const webhookColumns = `id, name, description, url, method, content_type, auth_type, credentials, secret,
	timeout_ms, retry_attempts, retry_delay_ms, events, headers, template, enabled,
	success_count, failure_count, last_triggered_at, created_at, updated_at`

// WebhookStore implements webhook.Store.
type WebhookStore struct {
	db DB
}

// NewWebhookStore creates a WebhookStore.
func NewWebhookStore(db DB) *WebhookStore {
	return &WebhookStore{db: db}
}

func (s *WebhookStore) Create(ctx context.Context, cfg *webhook.Config) error {
	args, err := webhookArgs(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO webhooks (`+webhookColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		args...)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: duplicate id %q", webhook.ErrInvalidConfig, cfg.ID)
		}
		return fmt.Errorf("failed to insert webhook: %w", err)
	}
	return nil
}

func (s *WebhookStore) Get(ctx context.Context, id string) (*webhook.Config, error) {
	rows, err := s.db.Query(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook: %w", err)
	}
	cfg, err := pgx.CollectExactlyOneRow(rows, scanWebhook)
	if pg.IsNotFoundError(err) {
		return nil, webhook.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan webhook: %w", err)
	}
	return cfg, nil
}

func (s *WebhookStore) List(ctx context.Context) ([]*webhook.Config, error) {
	return s.list(ctx, `SELECT `+webhookColumns+` FROM webhooks ORDER BY created_at, id`)
}

func (s *WebhookStore) ListEnabledForEvent(ctx context.Context, eventType string) ([]*webhook.Config, error) {
	return s.list(ctx, `SELECT `+webhookColumns+` FROM webhooks
		WHERE enabled AND events && ARRAY[$1, $2]::text[]
		ORDER BY created_at, id`, eventType, webhook.WildcardEvent)
}

// Update replaces every column except the delivery counters, which only
// RecordDelivery changes.
func (s *WebhookStore) Update(ctx context.Context, cfg *webhook.Config) error {
	args, err := webhookArgs(cfg)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `UPDATE webhooks SET
			name = $2, description = $3, url = $4, method = $5, content_type = $6,
			auth_type = $7, credentials = $8, secret = $9, timeout_ms = $10,
			retry_attempts = $11, retry_delay_ms = $12, events = $13, headers = $14,
			template = $15, enabled = $16, updated_at = $17
		WHERE id = $1`, append(args[:16:16], cfg.UpdatedAt)...)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

func (s *WebhookStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

func (s *WebhookStore) RecordDelivery(ctx context.Context, id string, success bool, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE webhooks SET
			success_count = success_count + CASE WHEN $2 THEN 1 ELSE 0 END,
			failure_count = failure_count + CASE WHEN $2 THEN 0 ELSE 1 END,
			last_triggered_at = $3
		WHERE id = $1`, id, success, at)
	if err != nil {
		return fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

func (s *WebhookStore) list(ctx context.Context, query string, args ...any) ([]*webhook.Config, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanWebhook)
	if err != nil {
		return nil, fmt.Errorf("failed to scan webhooks: %w", err)
	}
	return list, nil
}

func webhookArgs(cfg *webhook.Config) ([]any, error) {
	creds, err := marshalJSON(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	headers, err := nullJSONMap(cfg.Headers)
	if err != nil {
		return nil, err
	}
	events := cfg.Events
	if events == nil {
		events = []string{}
	}
	return []any{
		cfg.ID, cfg.Name, cfg.Description, cfg.URL, cfg.MethodOrDefault(), cfg.ContentTypeOrDefault(),
		string(cfg.AuthType), creds, cfg.Secret, millis(cfg.Timeout), cfg.RetryAttempts, millis(cfg.RetryDelay),
		events, headers, cfg.Template, cfg.Enabled,
		cfg.SuccessCount, cfg.FailureCount, cfg.LastTriggeredAt, cfg.CreatedAt, cfg.UpdatedAt,
	}, nil
}

func scanWebhook(row pgx.CollectableRow) (*webhook.Config, error) {
	var (
		cfg       webhook.Config
		authType  string
		creds     []byte
		headers   []byte
		timeoutMS int64
		delayMS   int64
	)
	err := row.Scan(
		&cfg.ID, &cfg.Name, &cfg.Description, &cfg.URL, &cfg.Method, &cfg.ContentType, &authType, &creds, &cfg.Secret,
		&timeoutMS, &cfg.RetryAttempts, &delayMS, &cfg.Events, &headers, &cfg.Template, &cfg.Enabled,
		&cfg.SuccessCount, &cfg.FailureCount, &cfg.LastTriggeredAt, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cfg.AuthType = webhook.AuthType(authType)
	cfg.Timeout = fromMillis(timeoutMS)
	cfg.RetryDelay = fromMillis(delayMS)
	if err := unmarshalJSON(creds, &cfg.Credentials); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(headers, &cfg.Headers); err != nil {
		return nil, err
	}
	return &cfg, nil
}
