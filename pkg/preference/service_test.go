package preference_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/preference"
)

func findSetting(settings []preference.Setting, channel preference.Channel, eventType string) (preference.Setting, bool) {
	for _, s := range settings {
		if s.Channel == channel && s.EventType == eventType {
			return s, true
		}
	}
	return preference.Setting{}, false
}

func TestService_GetUpdateReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	defaults := preference.DefaultTable()
	svc := preference.NewService(preference.NewMemoryStore(), defaults)

	settings, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, settings, len(defaults.Entries()))
	for _, s := range settings {
		assert.True(t, s.IsDefault)
	}

	_, err = svc.Update(ctx, 1, preference.Update{Channel: preference.ChannelInApp, EventType: preference.EventAnnouncement, Enabled: false})
	require.NoError(t, err)
	_, err = svc.Update(ctx, 1, preference.Update{Channel: preference.ChannelPush, EventType: "custom.event", Enabled: true})
	require.NoError(t, err)

	settings, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, settings, len(defaults.Entries())+1)

	s, ok := findSetting(settings, preference.ChannelInApp, preference.EventAnnouncement)
	require.True(t, ok)
	assert.False(t, s.Enabled)
	assert.False(t, s.IsDefault)

	s, ok = findSetting(settings, preference.ChannelPush, "custom.event")
	require.True(t, ok)
	assert.True(t, s.Enabled)

	require.NoError(t, svc.Reset(ctx, 1))

	settings, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	s, ok = findSetting(settings, preference.ChannelInApp, preference.EventAnnouncement)
	require.True(t, ok)
	assert.True(t, s.Enabled)
	assert.True(t, s.IsDefault)
	_, ok = findSetting(settings, preference.ChannelPush, "custom.event")
	assert.False(t, ok)
}

func TestService_Update_Validation(t *testing.T) {
	t.Parallel()

	svc := preference.NewService(preference.NewMemoryStore(), preference.DefaultTable())

	tests := []struct {
		name   string
		update preference.Update
	}{
		{"unknown channel", preference.Update{Channel: "sms", EventType: "a.b"}},
		{"empty event type", preference.Update{Channel: preference.ChannelInApp}},
		{"undotted event type", preference.Update{Channel: preference.ChannelInApp, EventType: "announcement"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), 1, tt.update)
			assert.ErrorIs(t, err, preference.ErrInvalidPreference)
		})
	}
}

func TestService_BatchUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := preference.NewMemoryStore()
	svc := preference.NewService(store, preference.DefaultTable())

	t.Run("rejects whole batch on one invalid entry", func(t *testing.T) {
		_, err := svc.BatchUpdate(ctx, 5, []preference.Update{
			{Channel: preference.ChannelInApp, EventType: "a.b", Enabled: true},
			{Channel: "fax", EventType: "a.b", Enabled: true},
		})
		assert.ErrorIs(t, err, preference.ErrInvalidPreference)

		rows, err := store.ListByUser(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("last update for a pair wins", func(t *testing.T) {
		prefs, err := svc.BatchUpdate(ctx, 6, []preference.Update{
			{Channel: preference.ChannelEmail, EventType: "a.b", Enabled: true},
			{Channel: preference.ChannelEmail, EventType: "a.b", Enabled: false},
			{Channel: preference.ChannelInApp, EventType: "a.b", Enabled: true},
		})
		require.NoError(t, err)
		assert.Len(t, prefs, 2)

		rows, err := store.ListByUser(ctx, 6)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, preference.ChannelEmail, rows[0].Channel)
		assert.False(t, rows[0].Enabled)
	})
}

func TestParseChannel(t *testing.T) {
	t.Parallel()

	c, err := preference.ParseChannel("webhook")
	require.NoError(t, err)
	assert.Equal(t, preference.ChannelWebhook, c)

	_, err = preference.ParseChannel("pigeon")
	assert.ErrorIs(t, err, preference.ErrUnknownChannel)
}
