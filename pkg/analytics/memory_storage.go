package analytics

import (
	"context"
	"sync"
)

// MemoryStorage keeps events in a slice. Suitable for tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, events ...Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *MemoryStorage) CountByAction(_ context.Context, filter Filter) (map[Action]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type pair struct {
		action         Action
		notificationID string
		userID         int64
	}
	seen := make(map[pair]struct{})
	counts := make(map[Action]int64)
	for _, e := range s.events {
		if !filter.Match(e) {
			continue
		}
		if e.Action.Distinct() {
			k := pair{e.Action, e.NotificationID, e.UserID}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		counts[e.Action]++
	}
	return counts, nil
}

// Events returns a copy of every stored event in insertion order.
func (s *MemoryStorage) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
