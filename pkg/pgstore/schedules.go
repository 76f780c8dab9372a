package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

const scheduleColumns = `id, request, status, sent_count, failure_count, last_error,
	created_by, created_at, processed_at, cancelled_at`

// ScheduleStore implements dispatch.Store. Status transitions are single
// conditional updates, so concurrent writers never both finalize a row.
type ScheduleStore struct {
	db DB
}

// NewScheduleStore creates a ScheduleStore.
func NewScheduleStore(db DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

func (s *ScheduleStore) Create(ctx context.Context, row *dispatch.Scheduled) error {
	if row.Request.ScheduledAt == nil {
		return fmt.Errorf("%w: scheduled_at is required", dispatch.ErrInvalidRequest)
	}
	req, err := marshalJSON(row.Request)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `INSERT INTO scheduled_notifications
			(id, request, status, scheduled_at, sent_count, failure_count, last_error, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.ID, req, string(row.Status), *row.Request.ScheduledAt, row.SentCount, row.FailureCount,
		row.LastError, row.CreatedBy, row.CreatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: duplicate id %q", dispatch.ErrInvalidRequest, row.ID)
		}
		return fmt.Errorf("failed to insert scheduled notification: %w", err)
	}
	return nil
}

func (s *ScheduleStore) Get(ctx context.Context, id string) (*dispatch.Scheduled, error) {
	rows, err := s.db.Query(ctx, `SELECT `+scheduleColumns+` FROM scheduled_notifications WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled notification: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, scanScheduled)
	if pg.IsNotFoundError(err) {
		return nil, dispatch.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scheduled notification: %w", err)
	}
	return row, nil
}

func (s *ScheduleStore) List(ctx context.Context, status dispatch.Status) ([]*dispatch.Scheduled, error) {
	return s.list(ctx, `SELECT `+scheduleColumns+` FROM scheduled_notifications
		WHERE $1 = '' OR status = $1
		ORDER BY scheduled_at, id`, string(status))
}

func (s *ScheduleStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*dispatch.Scheduled, error) {
	return s.list(ctx, `SELECT `+scheduleColumns+` FROM scheduled_notifications
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at, id
		LIMIT NULLIF($2::int, 0)`, now, limit)
}

func (s *ScheduleStore) Cancel(ctx context.Context, id string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE scheduled_notifications
		SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'pending'`, id, at)
	if err != nil {
		return fmt.Errorf("failed to cancel scheduled notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.notPending(ctx, id)
	}
	return nil
}

func (s *ScheduleStore) Complete(ctx context.Context, id string, c dispatch.Completion) error {
	tag, err := s.db.Exec(ctx, `UPDATE scheduled_notifications
		SET status = $2, sent_count = $3, failure_count = $4, last_error = $5, processed_at = $6
		WHERE id = $1 AND status = 'pending'`,
		id, string(c.Status), c.SentCount, c.FailureCount, c.LastError, c.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to complete scheduled notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.notPending(ctx, id)
	}
	return nil
}

// notPending explains why a conditional update matched no row.
func (s *ScheduleStore) notPending(ctx context.Context, id string) error {
	var status string
	err := s.db.QueryRow(ctx, `SELECT status FROM scheduled_notifications WHERE id = $1`, id).Scan(&status)
	if pg.IsNotFoundError(err) {
		return dispatch.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read scheduled notification status: %w", err)
	}
	return fmt.Errorf("%w: status is %s", dispatch.ErrNotPending, status)
}

func (s *ScheduleStore) list(ctx context.Context, query string, args ...any) ([]*dispatch.Scheduled, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled notifications: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to scan scheduled notifications: %w", err)
	}
	return list, nil
}

func scanScheduled(r pgx.CollectableRow) (*dispatch.Scheduled, error) {
	var (
		row    dispatch.Scheduled
		req    []byte
		status string
	)
	err := r.Scan(&row.ID, &req, &status, &row.SentCount, &row.FailureCount, &row.LastError,
		&row.CreatedBy, &row.CreatedAt, &row.ProcessedAt, &row.CancelledAt)
	if err != nil {
		return nil, err
	}
	row.Status = dispatch.Status(status)
	if err := unmarshalJSON(req, &row.Request); err != nil {
		return nil, err
	}
	return &row, nil
}
