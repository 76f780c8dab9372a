package notifications

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	notifications map[int64][]Notification // userID -> notifications
	mu            sync.RWMutex
	now           func() time.Time
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[int64][]Notification),
		now:           time.Now,
	}
}

func (s *MemoryStorage) Create(_ context.Context, notif Notification) error {
	if notif.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidNotification)
	}
	if notif.UserID == 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidNotification)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = s.now()
	}
	s.notifications[notif.UserID] = append(s.notifications[notif.UserID], notif)
	return nil
}

func (s *MemoryStorage) Get(_ context.Context, userID int64, notifID string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications[userID] {
		if n.ID == notifID {
			return &n, nil
		}
	}
	return nil, ErrNotificationNotFound
}

func (s *MemoryStorage) List(_ context.Context, userID int64, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	filtered := make([]Notification, 0, len(s.notifications[userID]))
	for _, n := range s.notifications[userID] {
		switch {
		case n.ExpiredAt(now):
		case opts.OnlyUnread && n.Read:
		case len(opts.Types) > 0 && !slices.Contains(opts.Types, n.Type):
		case opts.Category != "" && n.Category != opts.Category:
		case opts.NotificationID != "" && n.NotificationID != opts.NotificationID:
		case opts.Since != nil && n.CreatedAt.Before(*opts.Since):
		default:
			filtered = append(filtered, n)
		}
	}

	slices.SortStableFunc(filtered, func(a, b Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if opts.Offset >= len(filtered) {
		return []Notification{}, nil
	}
	end := len(filtered)
	if opts.Limit > 0 && opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return filtered[opts.Offset:end], nil
}

func (s *MemoryStorage) MarkRead(_ context.Context, userID int64, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	list := s.notifications[userID]
	for i := range list {
		if slices.Contains(notifIDs, list[i].ID) && !list[i].Read {
			list[i].MarkAsRead(now)
		}
	}
	return nil
}

func (s *MemoryStorage) MarkReadBySource(_ context.Context, userID int64, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	list := s.notifications[userID]
	for i := range list {
		if list[i].NotificationID == notificationID && !list[i].Read {
			list[i].MarkAsRead(now)
		}
	}
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, userID int64, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[userID] = slices.DeleteFunc(s.notifications[userID], func(n Notification) bool {
		return slices.Contains(notifIDs, n.ID)
	})
	return nil
}

func (s *MemoryStorage) CountUnread(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	count := 0
	for _, n := range s.notifications[userID] {
		if !n.Read && !n.ExpiredAt(now) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) DeleteExpired(_ context.Context, t time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, list := range s.notifications {
		before := len(list)
		list = slices.DeleteFunc(list, func(n Notification) bool { return n.ExpiredAt(t) })
		removed += before - len(list)
		s.notifications[userID] = list
	}
	return removed, nil
}

// Count returns the number of stored records across all users, expired included.
func (s *MemoryStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, list := range s.notifications {
		total += len(list)
	}
	return total
}
