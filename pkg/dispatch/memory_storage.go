package dispatch

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Scheduled
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Scheduled)}
}

func (m *MemoryStore) Create(_ context.Context, s *Scheduled) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[s.ID]; ok {
		return fmt.Errorf("%w: duplicate id %q", ErrInvalidRequest, s.ID)
	}
	c, err := clone(s)
	if err != nil {
		return err
	}
	m.rows[s.ID] = *c
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Scheduled, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(&row)
}

func (m *MemoryStore) List(_ context.Context, status Status) ([]*Scheduled, error) {
	return m.collect(func(s *Scheduled) bool { return status == "" || s.Status == status }, 0)
}

func (m *MemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]*Scheduled, error) {
	return m.collect(func(s *Scheduled) bool { return s.Due(now) }, limit)
}

func (m *MemoryStore) collect(keep func(*Scheduled) bool, limit int) ([]*Scheduled, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Scheduled, 0)
	for _, row := range m.rows {
		if !keep(&row) {
			continue
		}
		c, err := clone(&row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Scheduled) int {
		if c := scheduledAt(a).Compare(scheduledAt(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Cancel(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	if row.Status != StatusPending {
		return fmt.Errorf("%w: status is %s", ErrNotPending, row.Status)
	}
	row.Status = StatusCancelled
	row.CancelledAt = &at
	m.rows[id] = row
	return nil
}

func (m *MemoryStore) Complete(_ context.Context, id string, c Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	if row.Status != StatusPending {
		return fmt.Errorf("%w: status is %s", ErrNotPending, row.Status)
	}
	row.Status = c.Status
	row.SentCount = c.SentCount
	row.FailureCount = c.FailureCount
	row.LastError = c.LastError
	processed := c.ProcessedAt
	row.ProcessedAt = &processed
	m.rows[id] = row
	return nil
}

func scheduledAt(s *Scheduled) time.Time {
	if s.Request.ScheduledAt == nil {
		return s.CreatedAt
	}
	return *s.Request.ScheduledAt
}

// clone deep-copies through JSON, the same form persistent stores keep.
func clone(s *Scheduled) (*Scheduled, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to copy scheduled notification: %w", err)
	}
	var out Scheduled
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to copy scheduled notification: %w", err)
	}
	return &out, nil
}
