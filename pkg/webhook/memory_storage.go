package webhook

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]Config
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]Config)}
}

func (m *MemoryStore) Create(_ context.Context, cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.configs[cfg.ID]; ok {
		return fmt.Errorf("%w: duplicate id %q", ErrInvalidConfig, cfg.ID)
	}
	m.configs[cfg.ID] = cfg.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cfg.Clone()
	return &c, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Config, error) {
	return m.filter(func(*Config) bool { return true }), nil
}

func (m *MemoryStore) ListEnabledForEvent(_ context.Context, eventType string) ([]*Config, error) {
	return m.filter(func(c *Config) bool { return c.Accepts(eventType) }), nil
}

func (m *MemoryStore) filter(keep func(*Config) bool) []*Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Config, 0, len(m.configs))
	for _, cfg := range m.configs {
		if !keep(&cfg) {
			continue
		}
		c := cfg.Clone()
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *Config) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (m *MemoryStore) Update(_ context.Context, cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.configs[cfg.ID]; !ok {
		return ErrNotFound
	}
	m.configs[cfg.ID] = cfg.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.configs[id]; !ok {
		return ErrNotFound
	}
	delete(m.configs, id)
	return nil
}

func (m *MemoryStore) RecordDelivery(_ context.Context, id string, success bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[id]
	if !ok {
		return ErrNotFound
	}
	if success {
		cfg.SuccessCount++
	} else {
		cfg.FailureCount++
	}
	cfg.LastTriggeredAt = &at
	m.configs[id] = cfg
	return nil
}
