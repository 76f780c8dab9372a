package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *MemoryStorage, notifs ...Notification) {
	t.Helper()
	for _, n := range notifs {
		require.NoError(t, s.Create(context.Background(), n))
	}
}

func TestMemoryStorage_CreateValidation(t *testing.T) {
	s := NewMemoryStorage()

	err := s.Create(context.Background(), Notification{UserID: 1})
	assert.ErrorIs(t, err, ErrInvalidNotification)

	err = s.Create(context.Background(), Notification{ID: "n-1"})
	assert.ErrorIs(t, err, ErrInvalidNotification)
}

func TestMemoryStorage_Get(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	seed(t, s, Notification{ID: "n-1", UserID: 7, Title: "Hello"})

	got, err := s.Get(ctx, 7, "n-1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)

	got.Title = "mutated"
	again, err := s.Get(ctx, 7, "n-1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", again.Title)

	_, err = s.Get(ctx, 8, "n-1")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestMemoryStorage_List(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	past := time.Now().Add(-time.Minute)

	s := NewMemoryStorage()
	seed(t, s,
		Notification{ID: "a", UserID: 1, Type: TypeInfo, Category: "comment", NotificationID: "src-1", CreatedAt: base},
		Notification{ID: "b", UserID: 1, Type: TypeError, Category: "system", NotificationID: "src-2", CreatedAt: base.Add(time.Hour), Read: true},
		Notification{ID: "c", UserID: 1, Type: TypeInfo, Category: "comment", NotificationID: "src-3", CreatedAt: base.Add(2 * time.Hour)},
		Notification{ID: "expired", UserID: 1, CreatedAt: base.Add(3 * time.Hour), ExpiresAt: &past},
		Notification{ID: "other", UserID: 2, CreatedAt: base},
	)

	ids := func(list []Notification) []string {
		out := make([]string, len(list))
		for i, n := range list {
			out[i] = n.ID
		}
		return out
	}

	since := base.Add(30 * time.Minute)
	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"newest first without expired", ListOptions{}, []string{"c", "b", "a"}},
		{"only unread", ListOptions{OnlyUnread: true}, []string{"c", "a"}},
		{"by type", ListOptions{Types: []Type{TypeError}}, []string{"b"}},
		{"by category", ListOptions{Category: "comment"}, []string{"c", "a"}},
		{"by source", ListOptions{NotificationID: "src-3"}, []string{"c"}},
		{"since", ListOptions{Since: &since}, []string{"c", "b"}},
		{"limit", ListOptions{Limit: 2}, []string{"c", "b"}},
		{"offset", ListOptions{Offset: 1, Limit: 5}, []string{"b", "a"}},
		{"offset beyond", ListOptions{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, 1, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestMemoryStorage_MarkReadAndCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	seed(t, s,
		Notification{ID: "a", UserID: 1, NotificationID: "src-1"},
		Notification{ID: "b", UserID: 1, NotificationID: "src-2"},
		Notification{ID: "c", UserID: 1, NotificationID: "src-2"},
	)

	count, err := s.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, s.MarkRead(ctx, 1, "a"))
	require.NoError(t, s.MarkReadBySource(ctx, 1, "src-2"))

	count, err = s.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := s.Get(ctx, 1, "b")
	require.NoError(t, err)
	assert.True(t, got.Read)
	assert.NotNil(t, got.ReadAt)
}

func TestMemoryStorage_DeleteAndDeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	s := NewMemoryStorage()
	seed(t, s,
		Notification{ID: "a", UserID: 1},
		Notification{ID: "b", UserID: 1, ExpiresAt: &past},
		Notification{ID: "c", UserID: 2, ExpiresAt: &past},
		Notification{ID: "d", UserID: 2, ExpiresAt: &future},
	)

	removed, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, s.Count())

	require.NoError(t, s.Delete(ctx, 1, "a"))
	_, err = s.Get(ctx, 1, "a")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	assert.Equal(t, 1, s.Count())
}

func TestMemoryStorage_ConcurrentCreate(t *testing.T) {
	s := NewMemoryStorage()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Create(context.Background(), Notification{ID: string(rune('a' + i%26)), UserID: int64(i%5 + 1)})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Count())
}
