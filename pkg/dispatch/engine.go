package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/analytics"
	"github.com/dmitrymomot/notifykit/pkg/audience"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

type (
	// AudienceResolver expands a descriptor into recipient ids.
	AudienceResolver interface {
		Resolve(ctx context.Context, d audience.Descriptor) ([]int64, error)
	}

	// PreferenceFilter keeps the recipients that accept an event on a channel.
	PreferenceFilter interface {
		FilterEnabled(ctx context.Context, userIDs []int64, channel preference.Channel, eventType string) ([]int64, error)
	}

	// InApp persists and reads in-app records.
	InApp interface {
		SendToUsers(ctx context.Context, userIDs []int64, template notifications.Notification) ([]notifications.Notification, error)
		List(ctx context.Context, userID int64, opts notifications.ListOptions) ([]notifications.Notification, error)
		MarkReadBySource(ctx context.Context, userID int64, notificationID string) error
		DeleteExpired(ctx context.Context) (int, error)
	}

	// WebhookSource lists configurations subscribed to an event.
	WebhookSource interface {
		ListEnabledForEvent(ctx context.Context, eventType string) ([]*webhook.Config, error)
	}

	// WebhookExecutor delivers one payload with retries and accounting.
	// Fail accounts a delivery that never got a payload.
	WebhookExecutor interface {
		Execute(ctx context.Context, cfg *webhook.Config, payload []byte) webhook.FinalOutcome
		Fail(ctx context.Context, cfg *webhook.Config, err error) webhook.FinalOutcome
	}

	// PayloadRenderer renders webhook bodies.
	PayloadRenderer interface {
		Render(tpl *string, rc webhook.RenderContext) ([]byte, error)
	}

	// Analytics records and aggregates engagement.
	Analytics interface {
		Record(ctx context.Context, e analytics.Event)
		RecordDelivered(ctx context.Context, notificationID, eventType string, userIDs []int64)
		Stats(ctx context.Context, filter analytics.Filter) (analytics.Stats, error)
	}
)

// Deps are the collaborators of an Engine. All are required.
type Deps struct {
	Schedules   Store
	Audience    AudienceResolver
	Preferences PreferenceFilter
	InApp       InApp
	Webhooks    WebhookSource
	Retrier     WebhookExecutor
	Renderer    PayloadRenderer
	Analytics   Analytics
}

func (d Deps) validate() error {
	missing := func(name string) error { return fmt.Errorf("%w: %s", ErrMissingDependency, name) }
	switch {
	case d.Schedules == nil:
		return missing("schedules store")
	case d.Audience == nil:
		return missing("audience resolver")
	case d.Preferences == nil:
		return missing("preference filter")
	case d.InApp == nil:
		return missing("in-app manager")
	case d.Webhooks == nil:
		return missing("webhook source")
	case d.Retrier == nil:
		return missing("webhook retrier")
	case d.Renderer == nil:
		return missing("payload renderer")
	case d.Analytics == nil:
		return missing("analytics recorder")
	}
	return nil
}

// Engine turns requests into deliveries and owns the scheduled state machine.
type Engine struct {
	deps     Deps
	cfg      Config
	locker   Locker
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time

	scanning atomic.Bool

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithConfig applies scheduler settings.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLocker guards scans with a cross-process lock.
func WithLocker(l Locker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// NewEngine creates an Engine.
func NewEngine(deps Deps, opts ...Option) (*Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		deps:     deps,
		cfg:      DefaultConfig(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default(),
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.WorkerConcurrency = max(e.cfg.WorkerConcurrency, 1)
	e.logger = e.logger.With(logger.Component("dispatch"))
	return e, nil
}

// CreateNotification delivers req now and returns the ids of the stored
// in-app records. A request scheduled in the future is stored instead and
// its scheduled id returned.
func (e *Engine) CreateNotification(ctx context.Context, req Request, actorID int64) ([]string, error) {
	if err := e.check(&req); err != nil {
		return nil, err
	}
	if req.ScheduledAt != nil && req.ScheduledAt.After(e.now()) {
		id, err := e.ScheduleNotification(ctx, req, actorID)
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}

	report := e.deliver(ctx, uuid.NewString(), &req, actorID)

	ids := make([]string, len(report.InApp))
	for i, n := range report.InApp {
		ids[i] = n.ID
	}
	return ids, errors.Join(report.Errs...)
}

// ScheduleNotification stores req for delivery at req.ScheduledAt. A past
// time is accepted and picked up by the next scan.
func (e *Engine) ScheduleNotification(ctx context.Context, req Request, actorID int64) (string, error) {
	if err := e.check(&req); err != nil {
		return "", err
	}
	if req.ScheduledAt == nil {
		return "", fmt.Errorf("%w: scheduled_at is required", ErrInvalidRequest)
	}

	row := &Scheduled{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    StatusPending,
		CreatedBy: actorID,
		CreatedAt: e.now().UTC(),
	}
	if err := e.deps.Schedules.Create(ctx, row); err != nil {
		return "", fmt.Errorf("failed to store scheduled notification: %w", err)
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "notification scheduled",
		logger.NotificationID(row.ID),
		logger.EventType(req.EventTypeOrDefault()),
		logger.ActorID(actorID),
		slog.Time("scheduled_at", *req.ScheduledAt),
	)
	return row.ID, nil
}

// CancelScheduledNotification cancels a pending row. It fails with
// ErrInFlight while a scan is delivering the row and with ErrNotPending once
// the row reached a terminal status.
func (e *Engine) CancelScheduledNotification(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.inflight[id]; ok {
		return ErrInFlight
	}
	if err := e.deps.Schedules.Cancel(ctx, id, e.now().UTC()); err != nil {
		return err
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "scheduled notification cancelled",
		logger.NotificationID(id),
	)
	return nil
}

func (e *Engine) GetScheduled(ctx context.Context, id string) (*Scheduled, error) {
	return e.deps.Schedules.Get(ctx, id)
}

// ListScheduled returns rows with status, or every row when status is empty.
func (e *Engine) ListScheduled(ctx context.Context, status Status) ([]*Scheduled, error) {
	return e.deps.Schedules.List(ctx, status)
}

// TrackInput is an engagement action reported by a client.
type TrackInput struct {
	NotificationID string           `json:"notification_id" validate:"required"`
	UserID         int64            `json:"user_id" validate:"required"`
	Action         analytics.Action `json:"action" validate:"required,oneof=delivered read clicked dismissed expired"`
	EventType      string           `json:"event_type,omitempty"`
	ActionURL      string           `json:"action_url,omitempty" validate:"omitempty,max=2048"`
	UserAgent      string           `json:"user_agent,omitempty"`
	IP             string           `json:"ip,omitempty" validate:"omitempty,ip"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
}

// TrackNotificationAction records an engagement action. A read also marks
// the user's in-app copy read; failing to do so is returned, while analytics
// failures are only logged.
func (e *Engine) TrackNotificationAction(ctx context.Context, in TrackInput) error {
	if err := e.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if in.Action == analytics.ActionRead {
		if err := e.deps.InApp.MarkReadBySource(ctx, in.UserID, in.NotificationID); err != nil {
			return fmt.Errorf("failed to mark notification read: %w", err)
		}
	}

	if in.EventType == "" {
		in.EventType = e.lookupEventType(ctx, in.NotificationID, in.UserID)
	}

	e.deps.Analytics.Record(ctx, analytics.Event{
		NotificationID: in.NotificationID,
		UserID:         in.UserID,
		EventType:      in.EventType,
		Action:         in.Action,
		ActionURL:      in.ActionURL,
		UserAgent:      in.UserAgent,
		IP:             in.IP,
		Metadata:       in.Metadata,
	})
	return nil
}

func (e *Engine) lookupEventType(ctx context.Context, notificationID string, userID int64) string {
	if row, err := e.deps.Schedules.Get(ctx, notificationID); err == nil {
		return row.Request.EventTypeOrDefault()
	}
	records, err := e.deps.InApp.List(ctx, userID, notifications.ListOptions{NotificationID: notificationID, Limit: 1})
	if err == nil && len(records) > 0 {
		return records[0].EventType
	}
	return ""
}

// GetNotificationAnalytics aggregates engagement for the filter.
func (e *Engine) GetNotificationAnalytics(ctx context.Context, filter analytics.Filter) (analytics.Stats, error) {
	return e.deps.Analytics.Stats(ctx, filter)
}

// SweepExpired removes expired in-app records.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	return e.deps.InApp.DeleteExpired(ctx)
}

func (e *Engine) check(req *Request) error {
	if err := e.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if _, err := req.Descriptor(); err != nil {
		return err
	}
	if req.ScheduledAt != nil && req.ExpiresAt != nil && !req.ExpiresAt.After(*req.ScheduledAt) {
		return fmt.Errorf("%w: expires_at must be after scheduled_at", ErrInvalidRequest)
	}
	return nil
}

func (e *Engine) claim(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.inflight[id]; ok {
		return false
	}
	e.inflight[id] = struct{}{}
	return true
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, id)
}
