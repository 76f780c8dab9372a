package analytics

import "context"

// Storage appends events and answers aggregate queries.
type Storage interface {
	Store(ctx context.Context, events ...Event) error
	// CountByAction returns how many events of each action match the filter.
	// Actions where Action.Distinct is true count (notification, user) pairs.
	CountByAction(ctx context.Context, filter Filter) (map[Action]int64, error)
}
