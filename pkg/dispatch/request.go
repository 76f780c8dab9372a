package dispatch

import (
	"fmt"
	"slices"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/audience"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/preference"
)

// Request is an immediate or scheduled notification as submitted by an
// admin or produced by a domain event.
type Request struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Content     string               `json:"content" validate:"required,max=10000"`
	Kind        notifications.Type   `json:"kind" validate:"required,oneof=info success warning error announcement"`
	EventType   string               `json:"event_type,omitempty" validate:"omitempty,max=100,contains=."`
	Audience    audience.Spec        `json:"audience" validate:"required"`
	Channels    []preference.Channel `json:"channels,omitempty" validate:"omitempty,dive,oneof=in_app email push webhook"`
	ScheduledAt *time.Time           `json:"scheduled_at,omitempty"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	ActionURL   string               `json:"action_url,omitempty" validate:"omitempty,max=2048"`
	Metadata    map[string]any       `json:"metadata,omitempty"`
}

// EventTypeOrDefault returns EventType, or the kind's default event.
func (r *Request) EventTypeOrDefault() string {
	if r.EventType != "" {
		return r.EventType
	}
	if r.Kind == notifications.TypeAnnouncement {
		return preference.EventAnnouncement
	}
	return preference.EventSystemNotification
}

// ChannelsOrDefault returns Channels, or in-app plus webhook.
func (r *Request) ChannelsOrDefault() []preference.Channel {
	if len(r.Channels) > 0 {
		return r.Channels
	}
	return []preference.Channel{preference.ChannelInApp, preference.ChannelWebhook}
}

// Targets reports whether the request is sent over c.
func (r *Request) Targets(c preference.Channel) bool {
	return slices.Contains(r.ChannelsOrDefault(), c)
}

// Descriptor returns the audience variant.
func (r *Request) Descriptor() (audience.Descriptor, error) {
	d, err := r.Audience.Descriptor()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return d, nil
}

// template builds the in-app record shared by every recipient.
func (r *Request) template(sourceID string, actorID int64) notifications.Notification {
	eventType := r.EventTypeOrDefault()
	return notifications.Notification{
		NotificationID: sourceID,
		EventType:      eventType,
		Type:           r.Kind,
		Priority:       notifications.PriorityFor(r.Kind),
		Category:       notifications.CategoryOf(eventType),
		Title:          r.Title,
		Message:        r.Content,
		Data:           r.Metadata,
		ActionURL:      r.ActionURL,
		CreatedBy:      actorID,
		ExpiresAt:      r.ExpiresAt,
	}
}

// payloadData is the "data" object rendered into webhook payloads.
func (r *Request) payloadData(sourceID string, recipients int) map[string]any {
	data := map[string]any{
		"notification_id": sourceID,
		"title":           r.Title,
		"message":         r.Content,
		"kind":            string(r.Kind),
		"audience":        r.Audience,
		"recipients":      recipients,
	}
	if r.ActionURL != "" {
		data["action_url"] = r.ActionURL
	}
	if len(r.Metadata) > 0 {
		data["metadata"] = r.Metadata
	}
	return data
}
