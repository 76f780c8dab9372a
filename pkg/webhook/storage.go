package webhook

import (
	"context"
	"time"
)

// Store persists webhook configurations. Implementations return copies;
// mutating a returned Config does not change stored state.
type Store interface {
	Create(ctx context.Context, cfg *Config) error
	Get(ctx context.Context, id string) (*Config, error)
	List(ctx context.Context) ([]*Config, error)
	// ListEnabledForEvent returns enabled configurations subscribed to eventType,
	// either explicitly or through the wildcard.
	ListEnabledForEvent(ctx context.Context, eventType string) ([]*Config, error)
	Update(ctx context.Context, cfg *Config) error
	Delete(ctx context.Context, id string) error
	// RecordDelivery increments exactly one of the success or failure
	// counters and sets the last-triggered time.
	RecordDelivery(ctx context.Context, id string, success bool, at time.Time) error
}
