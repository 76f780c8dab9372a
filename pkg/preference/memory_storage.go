package preference

import (
	"context"
	"slices"
	"sync"
	"time"
)

type rowKey struct {
	userID    int64
	channel   Channel
	eventType string
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	rows map[rowKey]Preference
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[rowKey]Preference)}
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID int64) ([]Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Preference
	for k, p := range s.rows {
		if k.userID == userID {
			out = append(out, p)
		}
	}
	sortPreferences(out)
	return out, nil
}

func (s *MemoryStore) ListByUsers(ctx context.Context, userIDs []int64, channel Channel, eventType string) ([]Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Preference
	for _, id := range userIDs {
		if p, ok := s.rows[rowKey{id, channel, eventType}]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListByPair(ctx context.Context, channel Channel, eventType string) ([]Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Preference
	for k, p := range s.rows {
		if k.channel == channel && k.eventType == eventType {
			out = append(out, p)
		}
	}
	sortPreferences(out)
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, prefs ...Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range prefs {
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = time.Now()
		}
		s.rows[rowKey{p.UserID, p.Channel, p.EventType}] = p
	}
	return nil
}

func (s *MemoryStore) DeleteByUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.rows {
		if k.userID == userID {
			delete(s.rows, k)
		}
	}
	return nil
}

func sortPreferences(prefs []Preference) {
	slices.SortFunc(prefs, func(a, b Preference) int {
		switch {
		case a.UserID != b.UserID:
			if a.UserID < b.UserID {
				return -1
			}
			return 1
		case a.Channel != b.Channel:
			if a.Channel < b.Channel {
				return -1
			}
			return 1
		case a.EventType < b.EventType:
			return -1
		case a.EventType > b.EventType:
			return 1
		}
		return 0
	})
}
