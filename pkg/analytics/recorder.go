package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Recorder appends analytics events. Recording never fails the caller:
// invalid events and storage errors are logged and dropped.
type Recorder struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger for dropped events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder creates a Recorder.
func NewRecorder(storage Storage, opts ...Option) *Recorder {
	if storage == nil {
		panic("analytics: storage cannot be nil")
	}
	r := &Recorder{
		storage: storage,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one event.
func (r *Recorder) Record(ctx context.Context, e Event) {
	r.RecordBatch(ctx, []Event{e})
}

// RecordDelivered appends one delivered event per recipient.
func (r *Recorder) RecordDelivered(ctx context.Context, notificationID, eventType string, userIDs []int64) {
	events := make([]Event, len(userIDs))
	for i, id := range userIDs {
		events[i] = Event{
			NotificationID: notificationID,
			UserID:         id,
			EventType:      eventType,
			Action:         ActionDelivered,
		}
	}
	r.RecordBatch(ctx, events)
}

// RecordBatch appends events in one storage call. Invalid events are
// skipped individually.
func (r *Recorder) RecordBatch(ctx context.Context, events []Event) {
	valid := make([]Event, 0, len(events))
	now := r.now().UTC()
	for _, e := range events {
		if err := e.Validate(); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "analytics event dropped",
				logger.NotificationID(e.NotificationID),
				logger.Error(err),
			)
			continue
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		return
	}

	if err := r.storage.Store(ctx, valid...); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to store analytics events",
			logger.NotificationID(valid[0].NotificationID),
			logger.Count("event_count", len(valid)),
			logger.Error(err),
		)
	}
}

// Stats aggregates matching events.
func (r *Recorder) Stats(ctx context.Context, filter Filter) (Stats, error) {
	counts, err := r.storage.CountByAction(ctx, filter)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate analytics: %w", err)
	}

	s := Stats{
		TotalDelivered:     counts[ActionDelivered],
		TotalRead:          counts[ActionRead],
		TotalClicked:       counts[ActionClicked],
		TotalDismissed:     counts[ActionDismissed],
		TotalExpired:       counts[ActionExpired],
		TotalWebhookSent:   counts[ActionWebhookSent],
		TotalWebhookFailed: counts[ActionWebhookFailed],
	}
	s.ReadRate = rate(s.TotalRead, s.TotalDelivered)
	s.ClickRate = rate(s.TotalClicked, s.TotalDelivered)
	return s, nil
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	part = min(part, total)
	return math.Round(float64(part)/float64(total)*10000) / 100
}
