package dispatch

import (
	"context"
	"time"
)

// Store persists scheduled notifications. Status changes are conditional on
// the row still being pending so concurrent writers cannot double-finalize.
type Store interface {
	Create(ctx context.Context, s *Scheduled) error
	Get(ctx context.Context, id string) (*Scheduled, error)
	// List returns rows with the given status, all rows when status is empty.
	List(ctx context.Context, status Status) ([]*Scheduled, error)
	// ListDue returns up to limit pending rows scheduled at or before now,
	// oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Scheduled, error)
	// Cancel moves a pending row to cancelled. ErrNotPending otherwise.
	Cancel(ctx context.Context, id string, at time.Time) error
	// Complete moves a pending row to c.Status. ErrNotPending otherwise.
	Complete(ctx context.Context, id string, c Completion) error
}
