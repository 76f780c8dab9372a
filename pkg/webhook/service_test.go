package webhook_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

func newService(t *testing.T) (*webhook.Service, *webhook.MemoryStore) {
	t.Helper()
	store := webhook.NewMemoryStore()
	clock := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	svc := webhook.NewService(store, webhook.NewSender(), webhook.NewRenderer("notifykit"),
		webhook.WithServiceClock(clock),
	)
	return svc, store
}

func validConfig(url string) webhook.Config {
	return webhook.Config{
		Name:          "Slack relay",
		URL:           url,
		AuthType:      webhook.AuthBearer,
		Credentials:   webhook.Credentials{Token: "tok"},
		RetryAttempts: 2,
		Events:        []string{"announcement.published"},
		Enabled:       true,
	}
}

func TestService_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newService(t)

	in := validConfig("https://hooks.example.com/a")
	in.SuccessCount = 99
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, http.MethodPost, created.Method)
	assert.Equal(t, "application/json", created.ContentType)
	assert.Equal(t, webhook.DefaultDefaults().Timeout, created.Timeout)
	assert.Zero(t, created.SuccessCount)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestService_Create_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	tests := []struct {
		name    string
		mutate  func(*webhook.Config)
		wantErr error
	}{
		{"missing name", func(c *webhook.Config) { c.Name = "" }, webhook.ErrInvalidConfig},
		{"missing url", func(c *webhook.Config) { c.URL = "" }, webhook.ErrInvalidConfig},
		{"bad scheme", func(c *webhook.Config) { c.URL = "ftp://example.com/x" }, webhook.ErrInvalidURL},
		{"too many retries", func(c *webhook.Config) { c.RetryAttempts = 11 }, webhook.ErrInvalidConfig},
		{"bad method", func(c *webhook.Config) { c.Method = http.MethodGet }, webhook.ErrInvalidConfig},
		{"missing token", func(c *webhook.Config) { c.Credentials.Token = "" }, webhook.ErrMissingCredential},
		{"unknown auth", func(c *webhook.Config) { c.AuthType = "digest" }, webhook.ErrInvalidConfig},
		{"malformed template", func(c *webhook.Config) { tpl := "{{event"; c.Template = &tpl }, webhook.ErrMalformedTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig("https://hooks.example.com/a")
			tt.mutate(&cfg)
			_, err := svc.Create(context.Background(), cfg)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_UpdatePreservesCounters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newService(t)

	created, err := svc.Create(ctx, validConfig("https://hooks.example.com/a"))
	require.NoError(t, err)
	require.NoError(t, store.RecordDelivery(ctx, created.ID, false, time.Now()))

	in := validConfig("https://hooks.example.com/b")
	in.Name = "Renamed"
	updated, err := svc.Update(ctx, created.ID, in)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, int64(1), updated.FailureCount)
	assert.NotNil(t, updated.LastTriggeredAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = svc.Update(ctx, "missing", in)
	assert.ErrorIs(t, err, webhook.ErrNotFound)
}

func TestService_DeleteAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newService(t)

	a, err := svc.Create(ctx, validConfig("https://hooks.example.com/a"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validConfig("https://hooks.example.com/b"))
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), webhook.ErrNotFound)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_Test_DoesNotTouchCounters(t *testing.T) {
	t.Parallel()

	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx := context.Background()
	svc, _ := newService(t)
	created, err := svc.Create(ctx, validConfig(server.URL))
	require.NoError(t, err)

	res, err := svc.Test(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, res.Outcome.Success)
	assert.Equal(t, http.StatusInternalServerError, res.Outcome.StatusCode)
	assert.Equal(t, webhook.TestEventType, received["event"])
	assert.Equal(t, "notifykit", received["source"])

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.SuccessCount)
	assert.Zero(t, stored.FailureCount)
	assert.Nil(t, stored.LastTriggeredAt)
}

func TestService_TestConfig_Template(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"text":"This is a test webhook"}`, string(body))
	}))
	defer server.Close()

	svc, _ := newService(t)
	cfg := validConfig(server.URL)
	tpl := `{"text":"{{data.message}}"}`
	cfg.Template = &tpl

	res, err := svc.TestConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, res.Outcome.Success)
	assert.NoError(t, res.TemplateErr)
}

func TestService_Create_RetryDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := webhook.NewMemoryStore()
	defaults := webhook.DefaultDefaults()
	defaults.RetryAttempts = 4
	defaults.RetryDelay = 7 * time.Second
	svc := webhook.NewService(store, webhook.NewSender(), webhook.NewRenderer("notifykit"),
		webhook.WithServiceDefaults(defaults),
	)

	t.Run("unset fields take defaults", func(t *testing.T) {
		t.Parallel()
		in := validConfig("https://hooks.example.com/a")
		in.RetryAttempts = 0

		created, err := svc.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, 4, created.RetryAttempts)
		assert.Equal(t, 7*time.Second, created.RetryDelay)
	})

	t.Run("explicit zero is kept", func(t *testing.T) {
		t.Parallel()
		in := validConfig("https://hooks.example.com/b")
		in.SetRetryPolicy(0, 0)

		created, err := svc.Create(ctx, in)
		require.NoError(t, err)
		assert.Zero(t, created.RetryAttempts)
		assert.Zero(t, created.RetryDelay)
	})

	t.Run("explicit zero from json is kept", func(t *testing.T) {
		t.Parallel()
		var in webhook.Config
		require.NoError(t, json.Unmarshal([]byte(`{
			"name": "No retries",
			"url": "https://hooks.example.com/c",
			"events": ["*"],
			"retry_attempts": 0
		}`), &in))

		created, err := svc.Create(ctx, in)
		require.NoError(t, err)
		assert.Zero(t, created.RetryAttempts)
		assert.Equal(t, 7*time.Second, created.RetryDelay, "absent delay takes the default")
	})
}
