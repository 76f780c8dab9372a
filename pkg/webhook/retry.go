package webhook

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Dispatcher performs a single delivery attempt.
type Dispatcher interface {
	Deliver(ctx context.Context, cfg *Config, payload []byte, authHeaders map[string]string) Outcome
}

// CounterStore records the finalized result of a delivery.
type CounterStore interface {
	RecordDelivery(ctx context.Context, id string, success bool, at time.Time) error
}

// Phase is the position of a delivery in its retry lifecycle.
type Phase string

const (
	PhaseAttempting Phase = "attempting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// RetryState tracks one execution. Attempt counts tries started so far.
type RetryState struct {
	Phase       Phase
	Attempt     int
	MaxAttempts int
	Outcomes    []Outcome
	// Cancelled is set when the context ended while waiting to retry.
	Cancelled bool
}

func newRetryState(retryAttempts int) RetryState {
	return RetryState{
		Phase:       PhaseAttempting,
		MaxAttempts: max(retryAttempts, 0) + 1,
	}
}

func (s *RetryState) record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch {
	case o.Success:
		s.Phase = PhaseSucceeded
	case s.Attempt >= s.MaxAttempts, IsConfigurationError(o.Err):
		s.Phase = PhaseFailed
	}
}

func (s *RetryState) cancel() {
	s.Phase = PhaseFailed
	s.Cancelled = true
}

// FinalOutcome is the post-retry result of Retrier.Execute.
type FinalOutcome struct {
	WebhookID string
	Success   bool
	Attempts  int
	Last      Outcome
	State     RetryState
	// AuthErr is set when credentials could not be applied; the request
	// was still sent without auth headers.
	AuthErr error
	// RecordErr is set when the counter update failed.
	RecordErr error
}

// AttemptHook observes every attempt.
type AttemptHook func(cfg *Config, o Outcome)

// Retrier wraps a Dispatcher with bounded fixed-delay retries and
// records exactly one counter update per execution.
type Retrier struct {
	dispatcher Dispatcher
	counters   CounterStore
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	backoff    func(cfg *Config) BackoffStrategy
	now        func() time.Time
	hooks      []AttemptHook
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithRetrierLogger sets the logger for attempt and finalization records.
func WithRetrierLogger(l *slog.Logger) RetrierOption {
	return func(r *Retrier) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RetrierOption {
	return func(r *Retrier) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// WithBackoff replaces the per-configuration wait policy. The default is
// ConfigBackoff.
func WithBackoff(fn func(cfg *Config) BackoffStrategy) RetrierOption {
	return func(r *Retrier) {
		if fn != nil {
			r.backoff = fn
		}
	}
}

// WithClock replaces the time source for last-triggered stamps.
func WithClock(now func() time.Time) RetrierOption {
	return func(r *Retrier) {
		if now != nil {
			r.now = now
		}
	}
}

// WithAttemptHook registers a callback invoked after each attempt.
func WithAttemptHook(h AttemptHook) RetrierOption {
	return func(r *Retrier) {
		if h != nil {
			r.hooks = append(r.hooks, h)
		}
	}
}

// NewRetrier builds a Retrier. counters may be nil, in which case no
// accounting happens.
func NewRetrier(d Dispatcher, counters CounterStore, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		dispatcher: d,
		counters:   counters,
		logger:     logger.Discard(),
		sleep:      sleepContext,
		backoff:    ConfigBackoff,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute delivers payload with up to cfg.RetryAttempts+1 tries, waiting
// between them as the backoff policy says, cfg.RetryDelay by default.
// Every response class is retried; only configuration errors stop early
// since repeating them cannot succeed.
func (r *Retrier) Execute(ctx context.Context, cfg *Config, payload []byte) FinalOutcome {
	authHeaders, authErr := BuildAuthHeaders(cfg.AuthType, cfg.Credentials)
	if authErr != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "webhook auth not applied",
			logger.WebhookID(cfg.ID),
			logger.Error(authErr),
		)
	}

	backoff := r.backoff(cfg)
	state := newRetryState(cfg.RetryAttempts)
	for state.Phase == PhaseAttempting {
		state.Attempt++
		o := r.dispatcher.Deliver(ctx, cfg, payload, authHeaders)
		o.Attempt = state.Attempt
		state.record(o)

		for _, h := range r.hooks {
			h(cfg, o)
		}
		if !o.Success {
			r.logger.LogAttrs(ctx, slog.LevelDebug, "webhook attempt failed",
				logger.WebhookID(cfg.ID),
				logger.RetryCount(o.Attempt),
				logger.HTTPStatus(o.StatusCode),
				logger.Duration(o.Latency),
				logger.Error(o.Err),
			)
		}

		if state.Phase == PhaseAttempting {
			if err := r.sleep(ctx, backoff.NextInterval(state.Attempt)); err != nil {
				state.cancel()
			}
		}
	}

	return r.finalize(ctx, cfg, state, authErr)
}

// Fail finalizes a delivery that could not be attempted, for example
// because no payload could be rendered. It records one failure.
func (r *Retrier) Fail(ctx context.Context, cfg *Config, err error) FinalOutcome {
	state := newRetryState(cfg.RetryAttempts)
	state.Phase = PhaseFailed
	state.Outcomes = []Outcome{{Err: err}}
	return r.finalize(ctx, cfg, state, nil)
}

func (r *Retrier) finalize(ctx context.Context, cfg *Config, state RetryState, authErr error) FinalOutcome {
	final := FinalOutcome{
		WebhookID: cfg.ID,
		Success:   state.Phase == PhaseSucceeded,
		Attempts:  state.Attempt,
		Last:      state.Outcomes[len(state.Outcomes)-1],
		State:     state,
		AuthErr:   authErr,
	}

	if r.counters != nil && cfg.ID != "" {
		// The execution is finalized even if the caller's context ended.
		recCtx := context.WithoutCancel(ctx)
		if err := r.counters.RecordDelivery(recCtx, cfg.ID, final.Success, r.now().UTC()); err != nil {
			final.RecordErr = err
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to record webhook delivery",
				logger.WebhookID(cfg.ID),
				logger.Error(err),
			)
		}
	}

	level := slog.LevelInfo
	if !final.Success {
		level = slog.LevelWarn
	}
	r.logger.LogAttrs(ctx, level, "webhook delivery finalized",
		logger.WebhookID(cfg.ID),
		slog.Bool("success", final.Success),
		logger.RetryCount(final.Attempts),
		logger.HTTPStatus(final.Last.StatusCode),
	)
	return final
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
