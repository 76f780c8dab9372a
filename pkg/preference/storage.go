package preference

import "context"

// Store persists explicit preference rows.
type Store interface {
	// ListByUser returns every explicit row of a user.
	ListByUser(ctx context.Context, userID int64) ([]Preference, error)

	// ListByUsers returns the rows of the given users for one pair.
	ListByUsers(ctx context.Context, userIDs []int64, channel Channel, eventType string) ([]Preference, error)

	// ListByPair returns every row for one (channel, event type) pair.
	ListByPair(ctx context.Context, channel Channel, eventType string) ([]Preference, error)

	// Upsert inserts or replaces rows keyed by (user, channel, event type).
	Upsert(ctx context.Context, prefs ...Preference) error

	// DeleteByUser removes every explicit row of a user.
	DeleteByUser(ctx context.Context, userID int64) error
}

// UserLister lists active users, needed to apply enabled defaults in bulk.
type UserLister interface {
	ActiveUserIDs(ctx context.Context) ([]int64, error)
}
