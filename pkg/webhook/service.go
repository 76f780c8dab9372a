package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// TestEventType is the event sent by Test and TestConfig.
const TestEventType = "webhook.test"

// TestResult reports a single unretried test delivery.
type TestResult struct {
	Outcome     Outcome
	Payload     []byte
	TemplateErr error
	AuthErr     error
}

// Service manages webhook configurations.
type Service struct {
	store      Store
	dispatcher Dispatcher
	renderer   *Renderer
	defaults   Defaults
	validate   *validator.Validate
	logger     *slog.Logger
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the Service.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceDefaults sets the values applied to new configurations.
func WithServiceDefaults(d Defaults) ServiceOption {
	return func(s *Service) {
		s.defaults = d
	}
}

// WithServiceClock replaces the time source.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a webhook Service.
func NewService(store Store, dispatcher Dispatcher, renderer *Renderer, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		renderer:   renderer,
		defaults:   DefaultDefaults(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new configuration. Counters start at zero.
func (s *Service) Create(ctx context.Context, cfg Config) (*Config, error) {
	s.applyDefaults(&cfg)
	if err := s.check(&cfg); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	cfg.ID = uuid.NewString()
	cfg.SuccessCount = 0
	cfg.FailureCount = 0
	cfg.LastTriggeredAt = nil
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	if err := s.store.Create(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "webhook created",
		logger.WebhookID(cfg.ID),
		slog.String("name", cfg.Name),
	)
	return &cfg, nil
}

// Update replaces the editable fields of an existing configuration.
// Counters and timestamps owned by delivery are preserved.
func (s *Service) Update(ctx context.Context, id string, cfg Config) (*Config, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.applyDefaults(&cfg)
	if err := s.check(&cfg); err != nil {
		return nil, err
	}

	cfg.ID = current.ID
	cfg.SuccessCount = current.SuccessCount
	cfg.FailureCount = current.FailureCount
	cfg.LastTriggeredAt = current.LastTriggeredAt
	cfg.CreatedAt = current.CreatedAt
	cfg.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}
	return &cfg, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "webhook deleted", logger.WebhookID(id))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Config, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Config, error) {
	return s.store.List(ctx)
}

// Test sends one test event to a stored configuration without retries.
// Counters are not changed.
func (s *Service) Test(ctx context.Context, id string) (TestResult, error) {
	cfg, err := s.store.Get(ctx, id)
	if err != nil {
		return TestResult{}, err
	}
	return s.TestConfig(ctx, *cfg)
}

// TestConfig sends one test event to an unsaved configuration.
func (s *Service) TestConfig(ctx context.Context, cfg Config) (TestResult, error) {
	s.applyDefaults(&cfg)

	rc := RenderContext{
		Event:     TestEventType,
		Timestamp: s.now(),
		Data: map[string]any{
			"message":    "This is a test webhook",
			"webhook_id": cfg.ID,
			"test":       true,
		},
	}
	payload, tplErr := s.renderer.Render(cfg.Template, rc)
	if payload == nil {
		return TestResult{TemplateErr: tplErr}, tplErr
	}

	authHeaders, authErr := BuildAuthHeaders(cfg.AuthType, cfg.Credentials)
	out := s.dispatcher.Deliver(ctx, &cfg, payload, authHeaders)
	out.Attempt = 1

	s.logger.LogAttrs(ctx, slog.LevelInfo, "webhook test sent",
		logger.WebhookID(cfg.ID),
		slog.Bool("success", out.Success),
		logger.HTTPStatus(out.StatusCode),
		logger.Duration(out.Latency),
	)

	return TestResult{
		Outcome:     out,
		Payload:     payload,
		TemplateErr: tplErr,
		AuthErr:     authErr,
	}, nil
}

func (s *Service) applyDefaults(cfg *Config) {
	if cfg.Method == "" {
		cfg.Method = DefaultMethod
	}
	if cfg.ContentType == "" {
		cfg.ContentType = DefaultContentType
	}
	if cfg.AuthType == "" {
		cfg.AuthType = AuthNone
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = s.defaults.Timeout
	}
	if cfg.RetryAttempts == 0 && !cfg.attemptsSet {
		cfg.RetryAttempts = s.defaults.RetryAttempts
	}
	if cfg.RetryDelay == 0 && !cfg.delaySet {
		cfg.RetryDelay = s.defaults.RetryDelay
	}
}

func (s *Service) check(cfg *Config) error {
	if err := s.validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := ValidateURL(cfg.URL); err != nil {
		return err
	}
	if _, err := NewAuthenticator(cfg.AuthType, cfg.Credentials); err != nil {
		return err
	}
	if cfg.Template != nil {
		_, err := s.renderer.Render(cfg.Template, RenderContext{Event: TestEventType})
		if errors.Is(err, ErrMalformedTemplate) {
			return err
		}
	}
	return nil
}
