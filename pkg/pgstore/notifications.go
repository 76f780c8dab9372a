package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

const notificationColumns = `id, notification_id, user_id, event_type, type, priority, category,
	title, message, data, actions, action_url, read, read_at, created_by, created_at, expires_at`

// NotificationStore implements notifications.Storage.
type NotificationStore struct {
	db  DB
	now func() time.Time
}

// NewNotificationStore creates a NotificationStore.
func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db, now: time.Now}
}

func (s *NotificationStore) Create(ctx context.Context, n notifications.Notification) error {
	data, err := nullJSONMap(n.Data)
	if err != nil {
		return err
	}
	actions, err := nullJSON(n.Actions)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		n.ID, n.NotificationID, n.UserID, n.EventType, string(n.Type), int16(n.Priority), n.Category,
		n.Title, n.Message, data, actions, n.ActionURL, n.Read, n.ReadAt, n.CreatedBy, n.CreatedAt, n.ExpiresAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: duplicate id %q", notifications.ErrInvalidNotification, n.ID)
		}
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) Get(ctx context.Context, userID int64, notifID string) (*notifications.Notification, error) {
	rows, err := s.db.Query(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND id = $2`, userID, notifID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification: %w", err)
	}
	n, err := pgx.CollectExactlyOneRow(rows, scanNotification)
	if pg.IsNotFoundError(err) {
		return nil, notifications.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	return &n, nil
}

func (s *NotificationStore) List(ctx context.Context, userID int64, opts notifications.ListOptions) ([]notifications.Notification, error) {
	var q strings.Builder
	args := []any{userID, s.now()}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	q.WriteString(`SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > $2)`)
	if opts.OnlyUnread {
		q.WriteString(` AND NOT read`)
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		q.WriteString(` AND type = ANY(` + arg(types) + `)`)
	}
	if opts.Category != "" {
		q.WriteString(` AND category = ` + arg(opts.Category))
	}
	if opts.NotificationID != "" {
		q.WriteString(` AND notification_id = ` + arg(opts.NotificationID))
	}
	if opts.Since != nil {
		q.WriteString(` AND created_at >= ` + arg(*opts.Since))
	}
	q.WriteString(` ORDER BY created_at DESC, id`)
	if opts.Limit > 0 {
		q.WriteString(` LIMIT ` + arg(opts.Limit))
	}
	if opts.Offset > 0 {
		q.WriteString(` OFFSET ` + arg(opts.Offset))
	}

	rows, err := s.db.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanNotification)
	if err != nil {
		return nil, fmt.Errorf("failed to scan notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID int64, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `UPDATE notifications SET read = TRUE, read_at = $3
		WHERE user_id = $1 AND id = ANY($2) AND NOT read`, userID, notifIDs, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (s *NotificationStore) MarkReadBySource(ctx context.Context, userID int64, notificationID string) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET read = TRUE, read_at = $3
		WHERE user_id = $1 AND notification_id = $2 AND NOT read`, userID, notificationID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (s *NotificationStore) Delete(ctx context.Context, userID int64, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1 AND id = ANY($2)`, userID, notifIDs)
	if err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM notifications
		WHERE user_id = $1 AND NOT read AND (expires_at IS NULL OR expires_at > $2)`, userID, s.now()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (s *NotificationStore) DeleteExpired(ctx context.Context, t time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= $1`, t)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanNotification(row pgx.CollectableRow) (notifications.Notification, error) {
	var (
		n        notifications.Notification
		typ      string
		priority int16
		data     []byte
		actions  []byte
	)
	err := row.Scan(
		&n.ID, &n.NotificationID, &n.UserID, &n.EventType, &typ, &priority, &n.Category,
		&n.Title, &n.Message, &data, &actions, &n.ActionURL, &n.Read, &n.ReadAt, &n.CreatedBy, &n.CreatedAt, &n.ExpiresAt,
	)
	if err != nil {
		return n, err
	}
	n.Type = notifications.Type(typ)
	n.Priority = notifications.Priority(priority)
	if err := unmarshalJSON(data, &n.Data); err != nil {
		return n, err
	}
	if err := unmarshalJSON(actions, &n.Actions); err != nil {
		return n, err
	}
	return n, nil
}
