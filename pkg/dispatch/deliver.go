package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/analytics"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

// Report summarizes the fan-out of one request.
type Report struct {
	SourceID   string
	EventType  string
	Recipients int
	InApp      []notifications.Notification
	Webhooks   []webhook.FinalOutcome
	Errs       []error
}

// Delivered counts stored in-app records plus successful webhooks.
func (r *Report) Delivered() int {
	n := len(r.InApp)
	for _, w := range r.Webhooks {
		if w.Success {
			n++
		}
	}
	return n
}

// Failed counts failed webhooks plus errors that prevented deliveries.
func (r *Report) Failed() int {
	n := len(r.Errs)
	for _, w := range r.Webhooks {
		if !w.Success {
			n++
		}
	}
	return n
}

// err joins the delivery errors with every failed webhook's last error.
func (r *Report) err() error {
	errs := slices.Clone(r.Errs)
	for _, w := range r.Webhooks {
		if !w.Success && w.Last.Err != nil {
			errs = append(errs, fmt.Errorf("%w: webhook %s: %w", webhook.ErrDeliveryFailed, w.WebhookID, w.Last.Err))
		}
	}
	return errors.Join(errs...)
}

// deliver fans req out over its channels. In-app and webhook deliveries run
// concurrently, each bounded by the worker concurrency.
func (e *Engine) deliver(ctx context.Context, sourceID string, req *Request, actorID int64) *Report {
	report := &Report{SourceID: sourceID, EventType: req.EventTypeOrDefault()}
	var mu sync.Mutex
	fail := func(err error) {
		mu.Lock()
		report.Errs = append(report.Errs, err)
		mu.Unlock()
	}

	recipients, err := e.recipients(ctx, req)
	if err != nil {
		fail(err)
		return report
	}
	report.Recipients = len(recipients)

	var g errgroup.Group
	if req.Targets(preference.ChannelInApp) {
		g.Go(func() error {
			stored, err := e.deliverInApp(ctx, sourceID, req, actorID, recipients)
			mu.Lock()
			report.InApp = stored
			mu.Unlock()
			if err != nil {
				fail(err)
			}
			return nil
		})
	}
	if req.Targets(preference.ChannelWebhook) {
		g.Go(func() error {
			outcomes, err := e.deliverWebhooks(ctx, sourceID, req, len(recipients))
			mu.Lock()
			report.Webhooks = outcomes
			mu.Unlock()
			if err != nil {
				fail(err)
			}
			return nil
		})
	}
	for _, ch := range req.ChannelsOrDefault() {
		if ch != preference.ChannelInApp && ch != preference.ChannelWebhook {
			e.logger.LogAttrs(ctx, slog.LevelDebug, "channel has no transport, skipped",
				logger.NotificationID(sourceID),
				logger.Channel(string(ch)),
			)
		}
	}
	_ = g.Wait()

	e.logger.LogAttrs(ctx, slog.LevelInfo, "notification dispatched",
		logger.NotificationID(sourceID),
		logger.EventType(report.EventType),
		logger.Count("recipients", report.Recipients),
		logger.Count("in_app", len(report.InApp)),
		logger.Count("webhooks", len(report.Webhooks)),
		logger.Count("delivered", report.Delivered()),
		logger.Count("failed", report.Failed()),
	)
	return report
}

func (e *Engine) recipients(ctx context.Context, req *Request) ([]int64, error) {
	d, err := req.Descriptor()
	if err != nil {
		return nil, err
	}
	ids, err := e.deps.Audience.Resolve(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience: %w", err)
	}
	return ids, nil
}

func (e *Engine) deliverInApp(ctx context.Context, sourceID string, req *Request, actorID int64, recipients []int64) ([]notifications.Notification, error) {
	eventType := req.EventTypeOrDefault()
	enabled, err := e.deps.Preferences.FilterEnabled(ctx, recipients, preference.ChannelInApp, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to filter in-app preferences: %w", err)
	}
	if len(enabled) == 0 {
		return nil, nil
	}

	stored, err := e.deps.InApp.SendToUsers(ctx, enabled, req.template(sourceID, actorID))
	if len(stored) > 0 {
		userIDs := make([]int64, len(stored))
		for i, n := range stored {
			userIDs[i] = n.UserID
		}
		e.deps.Analytics.RecordDelivered(ctx, sourceID, eventType, userIDs)
	}
	if err != nil {
		return stored, fmt.Errorf("failed to store in-app notifications: %w", err)
	}
	return stored, nil
}

func (e *Engine) deliverWebhooks(ctx context.Context, sourceID string, req *Request, recipients int) ([]webhook.FinalOutcome, error) {
	eventType := req.EventTypeOrDefault()
	configs, err := e.deps.Webhooks.ListEnabledForEvent(ctx, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	if len(configs) == 0 {
		return nil, nil
	}

	rc := webhook.RenderContext{
		Event:     eventType,
		Timestamp: e.now(),
		Data:      req.payloadData(sourceID, recipients),
	}

	var mu sync.Mutex
	outcomes := make([]webhook.FinalOutcome, 0, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.WorkerConcurrency)
	for _, cfg := range configs {
		g.Go(func() error {
			var final webhook.FinalOutcome
			payload, err := e.deps.Renderer.Render(cfg.Template, rc)
			switch {
			case payload == nil:
				e.logger.LogAttrs(gctx, slog.LevelError, "webhook payload not rendered",
					logger.WebhookID(cfg.ID),
					logger.NotificationID(sourceID),
					logger.Error(err),
				)
				final = e.deps.Retrier.Fail(gctx, cfg, err)
			case err != nil:
				e.logger.LogAttrs(gctx, slog.LevelWarn, "webhook template malformed, default payload sent",
					logger.WebhookID(cfg.ID),
					logger.Error(err),
				)
				fallthrough
			default:
				final = e.deps.Retrier.Execute(gctx, cfg, payload)
			}
			e.recordWebhook(gctx, sourceID, eventType, final)

			mu.Lock()
			outcomes = append(outcomes, final)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

// recordWebhook appends the outcome of one webhook execution to analytics.
func (e *Engine) recordWebhook(ctx context.Context, sourceID, eventType string, final webhook.FinalOutcome) {
	action := analytics.ActionWebhookSent
	if !final.Success {
		action = analytics.ActionWebhookFailed
	}
	e.deps.Analytics.Record(ctx, analytics.Event{
		NotificationID: sourceID,
		EventType:      eventType,
		Action:         action,
		Metadata: map[string]any{
			"webhook_id":  final.WebhookID,
			"attempts":    final.Attempts,
			"status_code": final.Last.StatusCode,
		},
	})
}
