package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Manager orchestrates notification storage and delivery.
type Manager struct {
	storage     Storage
	deliverer   Deliverer
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithConcurrency bounds how many records SendToUsers persists at once.
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithManagerClock replaces the time source.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a new notification manager.
func NewManager(storage Storage, deliverer Deliverer, opts ...ManagerOption) *Manager {
	if deliverer == nil {
		deliverer = &NoOpDeliverer{}
	}

	m := &Manager{
		storage:     storage,
		deliverer:   deliverer,
		logger:      slog.Default(),
		concurrency: 8,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Send stores one notification and attempts real-time delivery.
func (m *Manager) Send(ctx context.Context, notif Notification) (Notification, error) {
	m.prepare(&notif)

	if err := m.storage.Create(ctx, notif); err != nil {
		return Notification{}, fmt.Errorf("failed to store notification: %w", err)
	}

	// Delivery is best effort; the record is already persisted.
	if err := m.deliverer.Deliver(ctx, notif); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to deliver notification, but it was stored successfully",
			logger.NotificationID(notif.ID),
			logger.UserID(notif.UserID),
			logger.Error(err),
		)
	}

	return notif, nil
}

// SendToUsers stores one copy of template per recipient using a bounded
// pool. A failed recipient does not stop the others: the stored records are
// returned together with the joined per-recipient errors.
func (m *Manager) SendToUsers(ctx context.Context, userIDs []int64, template Notification) ([]Notification, error) {
	var mu sync.Mutex
	var failure []error
	stored := make([]Notification, 0, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for _, userID := range userIDs {
		g.Go(func() error {
			notif := template
			notif.ID = ""
			notif.UserID = userID
			notif.Read = false
			notif.ReadAt = nil
			m.prepare(&notif)

			err := m.storage.Create(gctx, notif)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failure = append(failure, fmt.Errorf("user %d: %w", userID, err))
				return nil
			}
			stored = append(stored, notif)
			return nil
		})
	}
	_ = g.Wait()

	if len(stored) > 0 {
		if err := m.deliverer.DeliverBatch(ctx, stored); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to deliver notification batch, but they were stored successfully",
				logger.Count("notification_count", len(stored)),
				logger.Error(err),
			)
		}
	}

	if len(failure) > 0 {
		return stored, fmt.Errorf("failed to store %d of %d notifications: %w", len(failure), len(userIDs), errors.Join(failure...))
	}
	return stored, nil
}

func (m *Manager) prepare(n *Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = m.now().UTC()
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}
	if n.Category == "" {
		n.Category = CategoryOf(n.EventType)
	}
	if n.ActionURL != "" && len(n.Actions) == 0 {
		n.Actions = []Action{{Label: "View", URL: n.ActionURL, Style: "primary"}}
	}
}

func (m *Manager) Get(ctx context.Context, userID int64, notifID string) (*Notification, error) {
	return m.storage.Get(ctx, userID, notifID)
}

func (m *Manager) List(ctx context.Context, userID int64, opts ListOptions) ([]Notification, error) {
	return m.storage.List(ctx, userID, opts)
}

func (m *Manager) MarkRead(ctx context.Context, userID int64, notifIDs ...string) error {
	return m.storage.MarkRead(ctx, userID, notifIDs...)
}

// MarkReadBySource marks the user's records for a source notification as read.
func (m *Manager) MarkReadBySource(ctx context.Context, userID int64, notificationID string) error {
	return m.storage.MarkReadBySource(ctx, userID, notificationID)
}

// MarkAllRead marks all notifications as read for a user.
func (m *Manager) MarkAllRead(ctx context.Context, userID int64) error {
	unread, err := m.storage.List(ctx, userID, ListOptions{OnlyUnread: true})
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		return nil
	}

	ids := make([]string, len(unread))
	for i, n := range unread {
		ids[i] = n.ID
	}
	return m.storage.MarkRead(ctx, userID, ids...)
}

func (m *Manager) Delete(ctx context.Context, userID int64, notifIDs ...string) error {
	return m.storage.Delete(ctx, userID, notifIDs...)
}

func (m *Manager) CountUnread(ctx context.Context, userID int64) (int, error) {
	return m.storage.CountUnread(ctx, userID)
}

// DeleteExpired sweeps records whose expiry has passed.
func (m *Manager) DeleteExpired(ctx context.Context) (int, error) {
	n, err := m.storage.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	if n > 0 {
		m.logger.LogAttrs(ctx, slog.LevelInfo, "expired notifications removed",
			logger.Count("removed", n),
		)
	}
	return n, nil
}

// Storage returns the underlying notification storage.
func (m *Manager) Storage() Storage {
	return m.storage
}

// Deliverer returns the underlying notification deliverer.
func (m *Manager) Deliverer() Deliverer {
	return m.deliverer
}
