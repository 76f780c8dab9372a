package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotification_ExpiredAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-1 * time.Hour)
	future := now.Add(1 * time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "no expiration", expiresAt: nil, want: false},
		{name: "expired in the past", expiresAt: &past, want: true},
		{name: "expires exactly now", expiresAt: &now, want: true},
		{name: "expires in the future", expiresAt: &future, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Notification{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, n.ExpiredAt(now))
		})
	}
}

func TestNotification_MarkAsRead(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n := &Notification{}
	n.MarkAsRead(at)

	assert.True(t, n.Read)
	assert.Equal(t, at, *n.ReadAt)
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, PriorityUrgent, PriorityFor(TypeError))
	assert.Equal(t, PriorityHigh, PriorityFor(TypeAnnouncement))
	assert.Equal(t, PriorityHigh, PriorityFor(TypeWarning))
	assert.Equal(t, PriorityNormal, PriorityFor(TypeInfo))
	assert.Equal(t, PriorityLow, PriorityFor(TypeSuccess))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, "contribution", CategoryOf("contribution.approved"))
	assert.Equal(t, "announcement", CategoryOf("announcement.published"))
	assert.Equal(t, "plain", CategoryOf("plain"))
	assert.Equal(t, "", CategoryOf(""))
}

func TestType_Valid(t *testing.T) {
	assert.True(t, TypeAnnouncement.Valid())
	assert.False(t, Type("critical").Valid())
}
