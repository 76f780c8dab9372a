package notifications

import (
	"context"
	"time"
)

// Storage handles notification persistence and retrieval.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// Get retrieves a single notification.
	Get(ctx context.Context, userID int64, notifID string) (*Notification, error)

	// List returns notifications for a user, newest first.
	List(ctx context.Context, userID int64, opts ListOptions) ([]Notification, error)

	// MarkRead marks notification(s) as read.
	MarkRead(ctx context.Context, userID int64, notifIDs ...string) error

	// MarkReadBySource marks the user's records created from one source notification.
	MarkReadBySource(ctx context.Context, userID int64, notificationID string) error

	// Delete removes notification(s).
	Delete(ctx context.Context, userID int64, notifIDs ...string) error

	// CountUnread returns unread count for user.
	CountUnread(ctx context.Context, userID int64) (int, error)

	// DeleteExpired removes every record expired at or before t and reports how many.
	DeleteExpired(ctx context.Context, t time.Time) (int, error)
}

// ListOptions provides filtering and pagination options for listing notifications.
type ListOptions struct {
	Limit          int        // Maximum number of notifications to return (0 = no limit)
	Offset         int        // Number of notifications to skip for pagination
	OnlyUnread     bool       // When true, only return unread notifications
	Types          []Type     // If specified, only return notifications of these types
	Category       string     // If specified, only return notifications of this category
	NotificationID string     // If specified, only return records of this source notification
	Since          *time.Time // If specified, only return notifications created after this time
}
