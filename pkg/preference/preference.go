package preference

import "time"

// Preference is an explicit per-user override, unique per (UserID, Channel, EventType).
type Preference struct {
	UserID    int64     `json:"user_id"`
	Channel   Channel   `json:"channel"`
	EventType string    `json:"event_type"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting is an effective preference as shown to a user.
type Setting struct {
	Channel   Channel `json:"channel"`
	EventType string  `json:"event_type"`
	Enabled   bool    `json:"enabled"`
	IsDefault bool    `json:"is_default"`
}

// Update is a requested change to one (channel, event type) pair.
type Update struct {
	Channel   Channel `json:"channel" validate:"required,oneof=in_app email push webhook"`
	EventType string  `json:"event_type" validate:"required,max=100,contains=."`
	Enabled   bool    `json:"enabled"`
}
