package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/preference"
)

const preferenceColumns = `user_id, channel, event_type, enabled, updated_at`

// PreferenceStore implements preference.Store.
type PreferenceStore struct {
	db  DB
	now func() time.Time
}

// NewPreferenceStore creates a PreferenceStore.
func NewPreferenceStore(db DB) *PreferenceStore {
	return &PreferenceStore{db: db, now: time.Now}
}

func (s *PreferenceStore) ListByUser(ctx context.Context, userID int64) ([]preference.Preference, error) {
	return s.list(ctx, `SELECT `+preferenceColumns+` FROM notification_preferences
		WHERE user_id = $1 ORDER BY channel, event_type`, userID)
}

func (s *PreferenceStore) ListByUsers(ctx context.Context, userIDs []int64, channel preference.Channel, eventType string) ([]preference.Preference, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return s.list(ctx, `SELECT `+preferenceColumns+` FROM notification_preferences
		WHERE user_id = ANY($1) AND channel = $2 AND event_type = $3`, userIDs, string(channel), eventType)
}

func (s *PreferenceStore) ListByPair(ctx context.Context, channel preference.Channel, eventType string) ([]preference.Preference, error) {
	return s.list(ctx, `SELECT `+preferenceColumns+` FROM notification_preferences
		WHERE channel = $1 AND event_type = $2 ORDER BY user_id`, string(channel), eventType)
}

func (s *PreferenceStore) Upsert(ctx context.Context, prefs ...preference.Preference) error {
	if len(prefs) == 0 {
		return nil
	}

	now := s.now().UTC()
	b := &pgx.Batch{}
	for _, p := range prefs {
		updated := p.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		b.Queue(`INSERT INTO notification_preferences (`+preferenceColumns+`)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, channel, event_type) DO UPDATE SET
				enabled = EXCLUDED.enabled,
				updated_at = EXCLUDED.updated_at`,
			p.UserID, string(p.Channel), p.EventType, p.Enabled, updated)
	}
	if err := execBatch(ctx, s.db, b); err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}

func (s *PreferenceStore) DeleteByUser(ctx context.Context, userID int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM notification_preferences WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	return nil
}

func (s *PreferenceStore) list(ctx context.Context, query string, args ...any) ([]preference.Preference, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	prefs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (preference.Preference, error) {
		var (
			p       preference.Preference
			channel string
		)
		err := row.Scan(&p.UserID, &channel, &p.EventType, &p.Enabled, &p.UpdatedAt)
		p.Channel = preference.Channel(channel)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan preferences: %w", err)
	}
	return prefs, nil
}
