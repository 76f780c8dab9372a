package analytics

import (
	"fmt"
	"time"
)

// Action is an engagement step of a delivered notification.
type Action string

const (
	ActionDelivered Action = "delivered"
	ActionRead      Action = "read"
	ActionClicked   Action = "clicked"
	ActionDismissed Action = "dismissed"
	ActionExpired   Action = "expired"

	// Webhook outcomes are keyed by notification only; UserID stays zero and
	// Metadata carries the webhook id.
	ActionWebhookSent   Action = "webhook_sent"
	ActionWebhookFailed Action = "webhook_failed"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionDelivered, ActionRead, ActionClicked, ActionDismissed, ActionExpired,
		ActionWebhookSent, ActionWebhookFailed:
		return true
	}
	return false
}

// Distinct reports whether repeated events of a for the same notification and
// user count once. Reads and clicks are engagement states, not occurrences.
func (a Action) Distinct() bool {
	return a == ActionRead || a == ActionClicked
}

// ParseAction converts the wire form of an action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// Event is one append-only analytics row.
type Event struct {
	ID             string         `json:"id"`
	NotificationID string         `json:"notification_id"`
	UserID         int64          `json:"user_id"`
	EventType      string         `json:"event_type"`
	Action         Action         `json:"action"`
	ActionURL      string         `json:"action_url,omitempty"`
	UserAgent      string         `json:"user_agent,omitempty"`
	IP             string         `json:"ip,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate checks the fields every row needs.
func (e *Event) Validate() error {
	if e.NotificationID == "" {
		return fmt.Errorf("%w: notification id is required", ErrInvalidEvent)
	}
	if !e.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, e.Action)
	}
	return nil
}

// Filter narrows aggregate queries. Zero fields match everything.
type Filter struct {
	From           *time.Time `json:"from,omitempty"`
	To             *time.Time `json:"to,omitempty"`
	EventType      string     `json:"event_type,omitempty"`
	NotificationID string     `json:"notification_id,omitempty"`
}

// Match reports whether e passes the filter. From is inclusive, To exclusive.
func (f Filter) Match(e Event) bool {
	switch {
	case f.From != nil && e.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !e.CreatedAt.Before(*f.To):
		return false
	case f.EventType != "" && e.EventType != f.EventType:
		return false
	case f.NotificationID != "" && e.NotificationID != f.NotificationID:
		return false
	}
	return true
}

// Stats aggregates engagement. Read and clicked count distinct
// (notification, user) pairs, so rates are percentages of delivered that
// never exceed 100 and are zero when nothing was delivered.
type Stats struct {
	TotalDelivered     int64   `json:"total_delivered"`
	TotalRead          int64   `json:"total_read"`
	TotalClicked       int64   `json:"total_clicked"`
	TotalDismissed     int64   `json:"total_dismissed"`
	TotalExpired       int64   `json:"total_expired"`
	TotalWebhookSent   int64   `json:"total_webhook_sent"`
	TotalWebhookFailed int64   `json:"total_webhook_failed"`
	ReadRate           float64 `json:"read_rate"`
	ClickRate          float64 `json:"click_rate"`
}
