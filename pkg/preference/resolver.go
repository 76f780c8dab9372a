package preference

import (
	"context"
	"fmt"
	"slices"
)

// Resolver answers enabled/disabled questions. It never writes.
type Resolver struct {
	store    Store
	defaults Defaults
	users    UserLister
}

// NewResolver creates a Resolver. users is only needed by UsersWithEnabled
// and may be nil otherwise.
func NewResolver(store Store, defaults Defaults, users UserLister) *Resolver {
	return &Resolver{store: store, defaults: defaults, users: users}
}

// Defaults returns the resolver's default table.
func (r *Resolver) Defaults() Defaults {
	return r.defaults
}

// IsEnabled reports whether userID receives eventType on channel.
func (r *Resolver) IsEnabled(ctx context.Context, userID int64, channel Channel, eventType string) (bool, error) {
	rows, err := r.store.ListByUsers(ctx, []int64{userID}, channel, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to load preference: %w", err)
	}
	for _, p := range rows {
		if p.UserID == userID {
			return p.Enabled, nil
		}
	}
	return r.defaults.Enabled(channel, eventType), nil
}

// FilterEnabled returns the subset of userIDs that receive eventType on
// channel, preserving input order. Ids without a row follow the default;
// ids are not checked for existence.
func (r *Resolver) FilterEnabled(ctx context.Context, userIDs []int64, channel Channel, eventType string) ([]int64, error) {
	if len(userIDs) == 0 {
		return []int64{}, nil
	}

	rows, err := r.store.ListByUsers(ctx, userIDs, channel, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	explicit := make(map[int64]bool, len(rows))
	for _, p := range rows {
		explicit[p.UserID] = p.Enabled
	}

	def := r.defaults.Enabled(channel, eventType)
	out := make([]int64, 0, len(userIDs))
	for _, id := range userIDs {
		enabled, ok := explicit[id]
		if !ok {
			enabled = def
		}
		if enabled {
			out = append(out, id)
		}
	}
	return out, nil
}

// UsersWithEnabled returns every user that receives eventType on channel:
// explicit opt-ins, plus active users without a row when the default is
// enabled, minus explicit opt-outs. The result is sorted.
func (r *Resolver) UsersWithEnabled(ctx context.Context, channel Channel, eventType string) ([]int64, error) {
	rows, err := r.store.ListByPair(ctx, channel, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	enabled := make(map[int64]bool, len(rows))
	for _, p := range rows {
		enabled[p.UserID] = p.Enabled
	}

	if r.defaults.Enabled(channel, eventType) {
		if r.users == nil {
			return nil, fmt.Errorf("%w: user lister is required for enabled defaults", ErrInvalidPreference)
		}
		active, err := r.users.ActiveUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active users: %w", err)
		}
		for _, id := range active {
			if _, ok := enabled[id]; !ok {
				enabled[id] = true
			}
		}
	}

	out := make([]int64, 0, len(enabled))
	for id, on := range enabled {
		if on {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}
