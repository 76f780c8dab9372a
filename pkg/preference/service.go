package preference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Service exposes preference CRUD to the API layer.
type Service struct {
	store    Store
	defaults Defaults
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
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

// NewService creates a preference Service.
func NewService(store Store, defaults Defaults, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		defaults: defaults,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the effective settings of a user: every default pair plus
// every explicit row, with explicit rows winning.
func (s *Service) Get(ctx context.Context, userID int64) ([]Setting, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	explicit := make(map[key]bool, len(rows))
	for _, p := range rows {
		explicit[key{p.Channel, p.EventType}] = p.Enabled
	}

	settings := make([]Setting, 0, len(rows)+len(s.defaults.order))
	seen := make(map[key]struct{}, cap(settings))
	for _, d := range s.defaults.Entries() {
		k := key{d.Channel, d.EventType}
		seen[k] = struct{}{}
		if enabled, ok := explicit[k]; ok {
			settings = append(settings, Setting{Channel: d.Channel, EventType: d.EventType, Enabled: enabled})
			continue
		}
		settings = append(settings, Setting{Channel: d.Channel, EventType: d.EventType, Enabled: d.Enabled, IsDefault: true})
	}
	for _, p := range rows {
		if _, ok := seen[key{p.Channel, p.EventType}]; ok {
			continue
		}
		settings = append(settings, Setting{Channel: p.Channel, EventType: p.EventType, Enabled: p.Enabled})
	}

	return settings, nil
}

// Update sets one explicit preference.
func (s *Service) Update(ctx context.Context, userID int64, u Update) (Preference, error) {
	if err := s.check(u); err != nil {
		return Preference{}, err
	}

	p := Preference{
		UserID:    userID,
		Channel:   u.Channel,
		EventType: u.EventType,
		Enabled:   u.Enabled,
		UpdatedAt: s.now(),
	}
	if err := s.store.Upsert(ctx, p); err != nil {
		return Preference{}, fmt.Errorf("failed to save preference: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelDebug, "preference updated",
		logger.UserID(userID),
		logger.Channel(string(u.Channel)),
		logger.EventType(u.EventType),
		slog.Bool("enabled", u.Enabled),
	)
	return p, nil
}

// BatchUpdate validates every update before writing any of them.
func (s *Service) BatchUpdate(ctx context.Context, userID int64, updates []Update) ([]Preference, error) {
	if len(updates) == 0 {
		return []Preference{}, nil
	}

	var errs []error
	for i, u := range updates {
		if err := s.check(u); err != nil {
			errs = append(errs, fmt.Errorf("update %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	now := s.now()
	prefs := make([]Preference, 0, len(updates))
	for _, u := range updates {
		p := Preference{UserID: userID, Channel: u.Channel, EventType: u.EventType, Enabled: u.Enabled, UpdatedAt: now}
		// Last write for a pair wins within the batch.
		if i := slices.IndexFunc(prefs, func(x Preference) bool {
			return x.Channel == p.Channel && x.EventType == p.EventType
		}); i >= 0 {
			prefs[i] = p
			continue
		}
		prefs = append(prefs, p)
	}

	if err := s.store.Upsert(ctx, prefs...); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}

// Reset removes every explicit row so the user falls back to defaults.
func (s *Service) Reset(ctx context.Context, userID int64) error {
	if err := s.store.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset preferences: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "preferences reset", logger.UserID(userID))
	return nil
}

func (s *Service) check(u Update) error {
	if !u.Channel.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidPreference, ErrUnknownChannel, u.Channel)
	}
	if err := s.validate.Struct(u); err != nil {
		return errors.Join(ErrInvalidPreference, err)
	}
	return nil
}
