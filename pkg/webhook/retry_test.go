package webhook_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Deliver(ctx context.Context, cfg *webhook.Config, payload []byte, authHeaders map[string]string) webhook.Outcome {
	args := m.Called(ctx, cfg, payload, authHeaders)
	return args.Get(0).(webhook.Outcome)
}

func noSleep(context.Context, time.Duration) error { return nil }

func seedConfig(t *testing.T, store *webhook.MemoryStore, cfg webhook.Config) *webhook.Config {
	t.Helper()
	if cfg.ID == "" {
		cfg.ID = "wh-1"
	}
	require.NoError(t, store.Create(context.Background(), &cfg))
	return &cfg
}

func TestRetrier_PermanentFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := webhook.NewMemoryStore()
	cfg := seedConfig(t, store, webhook.Config{URL: "https://example.com/hook", RetryAttempts: 3, RetryDelay: time.Second, Enabled: true})

	d := &MockDispatcher{}
	d.On("Deliver", mock.Anything, cfg, mock.Anything, map[string]string{}).
		Return(webhook.Outcome{StatusCode: http.StatusNotFound, Err: webhook.ErrUnexpectedStatus})

	var slept []time.Duration
	r := webhook.NewRetrier(d, store, webhook.WithSleep(func(_ context.Context, delay time.Duration) error {
		slept = append(slept, delay)
		return nil
	}))

	final := r.Execute(ctx, cfg, []byte(`{}`))

	assert.False(t, final.Success)
	assert.Equal(t, 4, final.Attempts)
	assert.Equal(t, webhook.PhaseFailed, final.State.Phase)
	assert.Len(t, final.State.Outcomes, 4)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, slept)
	d.AssertNumberOfCalls(t, "Deliver", 4)

	stored, err := store.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.FailureCount)
	assert.Zero(t, stored.SuccessCount)
	assert.NotNil(t, stored.LastTriggeredAt)
}

func TestRetrier_StopsOnFirstSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := webhook.NewMemoryStore()
	cfg := seedConfig(t, store, webhook.Config{URL: "https://example.com/hook", RetryAttempts: 5})

	d := &MockDispatcher{}
	d.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(webhook.Outcome{StatusCode: 503, Err: webhook.ErrUnexpectedStatus}).Twice()
	d.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(webhook.Outcome{Success: true, StatusCode: 200}).Once()

	var attempts []int
	r := webhook.NewRetrier(d, store,
		webhook.WithSleep(noSleep),
		webhook.WithAttemptHook(func(_ *webhook.Config, o webhook.Outcome) { attempts = append(attempts, o.Attempt) }),
	)
	final := r.Execute(ctx, cfg, []byte(`{}`))

	assert.True(t, final.Success)
	assert.Equal(t, 3, final.Attempts)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	d.AssertNumberOfCalls(t, "Deliver", 3)

	stored, err := store.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.SuccessCount)
	assert.Zero(t, stored.FailureCount)
}

func TestRetrier_ConfigurationErrorNotRetried(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := webhook.NewMemoryStore()
	cfg := seedConfig(t, store, webhook.Config{URL: "", RetryAttempts: 3})

	r := webhook.NewRetrier(webhook.NewSender(), store, webhook.WithSleep(noSleep))
	final := r.Execute(ctx, cfg, []byte(`{}`))

	assert.False(t, final.Success)
	assert.Equal(t, 1, final.Attempts)
	require.ErrorIs(t, final.Last.Err, webhook.ErrInvalidURL)

	stored, err := store.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.FailureCount)
}

func TestRetrier_UnknownAuthStillDelivers(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Empty(t, r.Header.Get("Authorization"))
	}))
	defer server.Close()

	store := webhook.NewMemoryStore()
	cfg := seedConfig(t, store, webhook.Config{URL: server.URL, AuthType: "digest"})

	final := webhook.NewRetrier(webhook.NewSender(), store).Execute(context.Background(), cfg, []byte(`{}`))

	assert.True(t, final.Success)
	require.ErrorIs(t, final.AuthErr, webhook.ErrUnknownAuthType)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetrier_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	store := webhook.NewMemoryStore()
	cfg := seedConfig(t, store, webhook.Config{URL: "https://example.com", RetryAttempts: 3, RetryDelay: time.Hour})

	d := &MockDispatcher{}
	d.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(webhook.Outcome{Err: webhook.ErrTemporaryFailure})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	final := webhook.NewRetrier(d, store).Execute(ctx, cfg, []byte(`{}`))

	assert.False(t, final.Success)
	assert.True(t, final.State.Cancelled)
	assert.Equal(t, 1, final.Attempts)

	stored, err := store.Get(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.FailureCount)
}

type failingCounters struct{}

func (failingCounters) RecordDelivery(context.Context, string, bool, time.Time) error {
	return errors.New("db down")
}

func TestRetrier_RecordErrorSurfaced(t *testing.T) {
	t.Parallel()

	d := &MockDispatcher{}
	d.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(webhook.Outcome{Success: true, StatusCode: 200})

	cfg := &webhook.Config{ID: "wh-9", URL: "https://example.com"}
	final := webhook.NewRetrier(d, failingCounters{}).Execute(context.Background(), cfg, []byte(`{}`))

	assert.True(t, final.Success)
	assert.EqualError(t, final.RecordErr, "db down")
}

func TestRetrier_WaitsPerBackoffPolicy(t *testing.T) {
	t.Parallel()

	d := &MockDispatcher{}
	d.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(webhook.Outcome{Err: webhook.ErrTemporaryFailure})

	var waits []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	cfg := &webhook.Config{URL: "https://example.com", RetryAttempts: 2, RetryDelay: 3 * time.Second}
	webhook.NewRetrier(d, nil, webhook.WithSleep(sleep)).Execute(context.Background(), cfg, []byte(`{}`))
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, waits)

	waits = nil
	linear := func(*webhook.Config) webhook.BackoffStrategy { return linearBackoff(time.Second) }
	webhook.NewRetrier(d, nil, webhook.WithSleep(sleep), webhook.WithBackoff(linear)).Execute(context.Background(), cfg, []byte(`{}`))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

type linearBackoff time.Duration

func (l linearBackoff) NextInterval(attempt int) time.Duration {
	return time.Duration(l) * time.Duration(attempt)
}

func TestRetrier_Fail(t *testing.T) {
	t.Parallel()

	store := webhook.NewMemoryStore()
	cfg := seedConfig(t, store, webhook.Config{URL: "https://example.com", RetryAttempts: 3})
	d := &MockDispatcher{}

	renderErr := errors.New("payload not encodable")
	final := webhook.NewRetrier(d, store).Fail(context.Background(), cfg, renderErr)

	assert.False(t, final.Success)
	assert.Zero(t, final.Attempts)
	assert.ErrorIs(t, final.Last.Err, renderErr)
	assert.Equal(t, webhook.PhaseFailed, final.State.Phase)
	d.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	stored, err := store.Get(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.FailureCount)
	assert.Zero(t, stored.SuccessCount)
}
