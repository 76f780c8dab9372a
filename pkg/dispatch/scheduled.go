package dispatch

import "time"

// Status is the lifecycle state of a scheduled notification.
// Only pending is non-terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Scheduled is a request waiting for, or done with, its delivery time.
type Scheduled struct {
	ID           string     `json:"id"`
	Request      Request    `json:"request"`
	Status       Status     `json:"status"`
	SentCount    int        `json:"sent_count"`
	FailureCount int        `json:"failure_count"`
	LastError    string     `json:"last_error,omitempty"`
	CreatedBy    int64      `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// Due reports whether the row should be picked up at now.
func (s *Scheduled) Due(now time.Time) bool {
	return s.Status == StatusPending && s.Request.ScheduledAt != nil && !s.Request.ScheduledAt.After(now)
}

// Completion is the outcome written when a pending row finishes processing.
type Completion struct {
	Status       Status
	SentCount    int
	FailureCount int
	LastError    string
	ProcessedAt  time.Time
}
