package notifications

import (
	"strings"
	"time"
)

// Type is the notification kind shown to the user.
type Type string

const (
	TypeInfo         Type = "info"
	TypeSuccess      Type = "success"
	TypeWarning      Type = "warning"
	TypeError        Type = "error"
	TypeAnnouncement Type = "announcement"
)

// Valid reports whether t is a known kind.
func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError, TypeAnnouncement:
		return true
	}
	return false
}

// Priority represents the notification priority level.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// PriorityFor derives the priority of a kind.
func PriorityFor(t Type) Priority {
	switch t {
	case TypeError:
		return PriorityUrgent
	case TypeAnnouncement, TypeWarning:
		return PriorityHigh
	case TypeSuccess:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// CategoryOf returns the event type prefix before the first dot.
func CategoryOf(eventType string) string {
	category, _, _ := strings.Cut(eventType, ".")
	return category
}

// Action represents a call-to-action button in a notification.
type Action struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Style string `json:"style"` // primary, secondary, danger
}

// Notification is one in-app record. Each record belongs to exactly one recipient.
type Notification struct {
	ID             string         `json:"id"`
	NotificationID string         `json:"notification_id"` // source request or scheduled row
	UserID         int64          `json:"user_id"`
	EventType      string         `json:"event_type"`
	Type           Type           `json:"type"`
	Priority       Priority       `json:"priority"`
	Category       string         `json:"category"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Data           map[string]any `json:"data,omitempty"`
	Actions        []Action       `json:"actions,omitempty"`
	ActionURL      string         `json:"action_url,omitempty"`
	Read           bool           `json:"read"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
	CreatedBy      int64          `json:"created_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
}

// IsExpired reports whether the notification has expired.
func (n *Notification) IsExpired() bool {
	return n.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the notification is expired at t.
func (n *Notification) ExpiredAt(t time.Time) bool {
	return n.ExpiresAt != nil && !t.Before(*n.ExpiresAt)
}

// MarkAsRead marks the notification as read at t.
func (n *Notification) MarkAsRead(t time.Time) {
	n.Read = true
	n.ReadAt = &t
}
