package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/analytics"
)

// AnalyticsStore implements analytics.Storage on an append-only table.
type AnalyticsStore struct {
	db DB
}

// NewAnalyticsStore creates an AnalyticsStore.
func NewAnalyticsStore(db DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

func (s *AnalyticsStore) Store(ctx context.Context, events ...analytics.Event) error {
	if len(events) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, e := range events {
		meta, err := nullJSONMap(e.Metadata)
		if err != nil {
			return err
		}
		b.Queue(`INSERT INTO notification_analytics
				(id, notification_id, user_id, event_type, action, action_url, user_agent, ip, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`,
			e.ID, e.NotificationID, e.UserID, e.EventType, string(e.Action),
			e.ActionURL, e.UserAgent, e.IP, meta, e.CreatedAt)
	}
	if err := execBatch(ctx, s.db, b); err != nil {
		return fmt.Errorf("failed to store analytics events: %w", err)
	}
	return nil
}

func (s *AnalyticsStore) CountByAction(ctx context.Context, f analytics.Filter) (map[analytics.Action]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT action,
			CASE WHEN action IN ('read', 'clicked')
				THEN count(DISTINCT (notification_id, user_id))
				ELSE count(*)
			END
		FROM notification_analytics
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		  AND ($3 = '' OR event_type = $3)
		  AND ($4 = '' OR notification_id = $4)
		GROUP BY action`, f.From, f.To, f.EventType, f.NotificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate analytics: %w", err)
	}
	defer rows.Close()

	counts := make(map[analytics.Action]int64)
	for rows.Next() {
		var (
			action string
			n      int64
		)
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("failed to scan analytics counts: %w", err)
		}
		counts[analytics.Action(action)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to aggregate analytics: %w", err)
	}
	return counts, nil
}
