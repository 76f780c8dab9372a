package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// ScanResult summarizes one pass over due scheduled notifications.
type ScanResult struct {
	Due       int           `json:"due"`
	Sent      int           `json:"sent"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	Delivered int           `json:"delivered"`
	Duration  time.Duration `json:"duration"`
}

// ProcessScheduledNotifications delivers every due pending row once.
// Overlapping calls return ErrScanInProgress. A failing row is logged and
// the scan moves on to the next. Cancelling ctx leaves unstarted rows
// pending and lets the row in progress finish.
func (e *Engine) ProcessScheduledNotifications(ctx context.Context) (ScanResult, error) {
	if !e.scanning.CompareAndSwap(false, true) {
		return ScanResult{}, ErrScanInProgress
	}
	defer e.scanning.Store(false)

	if e.locker != nil {
		release, err := e.locker.Acquire(ctx, e.cfg.LockKey, e.cfg.LockTTL)
		if errors.Is(err, ErrLockHeld) {
			return ScanResult{}, ErrScanInProgress
		}
		if err != nil {
			return ScanResult{}, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				e.logger.LogAttrs(ctx, slog.LevelWarn, "failed to release scan lock", logger.Error(err))
			}
		}()
	}

	start := time.Now()
	now := e.now()
	due, err := e.deps.Schedules.ListDue(ctx, now, e.cfg.ScanBatchSize)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to list due notifications: %w", err)
	}

	res := ScanResult{Due: len(due)}
	for _, row := range due {
		if ctx.Err() != nil {
			break
		}
		status, delivered, err := e.processRow(ctx, row.ID)
		res.Delivered += delivered
		switch {
		case err != nil:
			res.Errors++
			e.logger.LogAttrs(ctx, slog.LevelError, "failed to process scheduled notification",
				logger.NotificationID(row.ID),
				logger.Error(err),
			)
		case status == StatusSent:
			res.Sent++
		case status == StatusFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}
	res.Duration = time.Since(start)

	if res.Due > 0 {
		e.logger.LogAttrs(ctx, slog.LevelInfo, "scheduled scan finished",
			logger.Count("due", res.Due),
			logger.Count("sent", res.Sent),
			logger.Count("failed", res.Failed),
			logger.Count("skipped", res.Skipped),
			logger.Count("errors", res.Errors),
			logger.Duration(res.Duration),
		)
	}
	return res, ctx.Err()
}

// processRow delivers one row. The empty status means the row was skipped
// because it is in flight elsewhere or no longer pending.
func (e *Engine) processRow(ctx context.Context, id string) (Status, int, error) {
	if !e.claim(id) {
		return "", 0, nil
	}
	defer e.release(id)
	// A claimed row runs to completion; cancellation stops the scan between rows.
	ctx = context.WithoutCancel(ctx)

	// Re-read after claiming: a cancel that won the race is visible here.
	row, err := e.deps.Schedules.Get(ctx, id)
	if err != nil {
		return "", 0, err
	}
	if row.Status != StatusPending {
		return "", 0, nil
	}

	now := e.now().UTC()
	if row.Request.ExpiresAt != nil && !now.Before(*row.Request.ExpiresAt) {
		err := e.deps.Schedules.Complete(ctx, id, Completion{
			Status:      StatusFailed,
			LastError:   "expired before delivery",
			ProcessedAt: now,
		})
		return e.completed(StatusFailed, 0, err)
	}

	report := e.deliver(ctx, id, &row.Request, row.CreatedBy)

	c := Completion{
		Status:       StatusFailed,
		SentCount:    report.Delivered(),
		FailureCount: report.Failed(),
		ProcessedAt:  e.now().UTC(),
	}
	if c.SentCount > 0 {
		c.Status = StatusSent
	}
	if err := report.err(); err != nil {
		c.LastError = err.Error()
	} else if c.Status == StatusFailed {
		c.LastError = "no deliveries succeeded"
	}

	err = e.deps.Schedules.Complete(ctx, id, c)
	return e.completed(c.Status, c.SentCount, err)
}

func (e *Engine) completed(status Status, delivered int, err error) (Status, int, error) {
	if errors.Is(err, ErrNotPending) {
		// Deliveries happened but another writer finalized the row first.
		return "", delivered, nil
	}
	if err != nil {
		return "", delivered, fmt.Errorf("failed to finalize scheduled notification: %w", err)
	}
	return status, delivered, nil
}
