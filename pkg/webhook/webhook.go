package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Outcome is the result of a single delivery attempt.
type Outcome struct {
	Success    bool
	StatusCode int
	Latency    time.Duration
	Err        error
	Attempt    int
}

// Sender executes one outbound HTTP call per Deliver.
// Zero value is not usable; use NewSender.
type Sender struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *Sender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithDefaults applies engine-wide timeout and user agent.
func WithDefaults(d Defaults) SenderOption {
	return func(s *Sender) {
		if d.Timeout > 0 {
			s.defaultTimeout = d.Timeout
		}
		if d.UserAgent != "" {
			s.userAgent = d.UserAgent
		}
	}
}

// NewSender creates a sender with a pooled HTTP client.
func NewSender(opts ...SenderOption) *Sender {
	d := DefaultDefaults()
	s := &Sender{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		defaultTimeout: d.Timeout,
		userAgent:      d.UserAgent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver sends payload to cfg.URL once. Custom headers are merged with
// authHeaders, auth winning on conflict, and the body is signed when the
// configuration has a secret. It never touches delivery counters.
func (s *Sender) Deliver(ctx context.Context, cfg *Config, payload []byte, authHeaders map[string]string) Outcome {
	start := time.Now()
	fail := func(err error, status int) Outcome {
		return Outcome{StatusCode: status, Latency: time.Since(start), Err: err}
	}

	if err := ValidateURL(cfg.URL); err != nil {
		return fail(err, 0)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, cfg.MethodOrDefault(), cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrInvalidConfig, err), 0)
	}

	req.Header.Set("Content-Type", cfg.ContentTypeOrDefault())
	req.Header.Set("User-Agent", s.userAgent)
	for k, v := range MergeHeaders(cfg.Headers, authHeaders) {
		req.Header.Set(k, v)
	}

	if cfg.Secret != "" && len(payload) > 0 {
		sig, err := Sign(cfg.Secret, payload)
		if err != nil {
			return fail(err, 0)
		}
		sig.Apply(req.Header)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return fail(fmt.Errorf("%w after %v: %w", ErrTimeout, timeout, err), 0)
		}
		return fail(fmt.Errorf("%w: %w", ErrTemporaryFailure, err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	// Bounded read so the connection can be reused.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(statusError(resp.StatusCode, body), resp.StatusCode)
	}

	return Outcome{
		Success:    true,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}

func statusError(status int, body []byte) error {
	msg := strings.ReplaceAll(strings.TrimSpace(string(body)), "\n", " ")
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
	}
	return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, status, msg)
}
