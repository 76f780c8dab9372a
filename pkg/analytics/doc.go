// Package analytics records delivery and engagement events for
// notifications and aggregates them into read and click rates.
//
// Recording is fire and forget: Recorder logs and drops events it cannot
// store so that analytics never fails or rolls back a delivery.
//
//	rec := analytics.NewRecorder(analytics.NewMemoryStorage())
//	rec.RecordDelivered(ctx, "ntf-1", "announcement.published", []int64{7})
//	rec.Record(ctx, analytics.Event{NotificationID: "ntf-1", UserID: 7, Action: analytics.ActionRead})
//
//	stats, err := rec.Stats(ctx, analytics.Filter{EventType: "announcement.published"})
//	// stats.ReadRate == 100
package analytics
