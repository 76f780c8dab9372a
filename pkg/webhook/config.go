package webhook

import (
	"encoding/json"
	"math"
	"net/http"
	"slices"
	"time"
)

// Defaults holds engine-wide webhook settings loaded from the environment.
type Defaults struct {
	// Source is the "source" field of the default envelope.
	Source string `env:"WEBHOOK_SOURCE" envDefault:"notifykit"`
	// Timeout applies when a configuration has none.
	Timeout       time.Duration `env:"WEBHOOK_DEFAULT_TIMEOUT" envDefault:"10s"`
	RetryAttempts int           `env:"WEBHOOK_DEFAULT_RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay    time.Duration `env:"WEBHOOK_DEFAULT_RETRY_DELAY" envDefault:"5s"`
	UserAgent     string        `env:"WEBHOOK_USER_AGENT" envDefault:"notifykit-webhook/1.0"`
}

// DefaultDefaults returns the values used when no environment is loaded.
func DefaultDefaults() Defaults {
	return Defaults{
		Source:        "notifykit",
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Second,
		UserAgent:     "notifykit-webhook/1.0",
	}
}

// WildcardEvent subscribes a configuration to every event type.
const WildcardEvent = "*"

const (
	DefaultMethod      = http.MethodPost
	DefaultContentType = "application/json"
)

// Config is a stored outbound webhook configuration.
//
// In JSON, timeout and retry_delay are numbers of seconds, fractions allowed.
// A zero RetryAttempts or RetryDelay takes the service defaults unless it was
// set explicitly, either in JSON or through SetRetryPolicy.
type Config struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	URL         string `json:"url" validate:"required,url"`
	Method      string `json:"method" validate:"omitempty,oneof=POST PUT PATCH"`
	ContentType string `json:"content_type,omitempty" validate:"omitempty,max=100"`

	AuthType    AuthType    `json:"auth_type" validate:"omitempty,oneof=none bearer basic api_key"`
	Credentials Credentials `json:"credentials"`
	Secret      string      `json:"secret,omitempty"`

	Timeout       time.Duration `json:"timeout" validate:"min=0,max=5m"`
	RetryAttempts int           `json:"retry_attempts" validate:"min=0,max=10"`
	RetryDelay    time.Duration `json:"retry_delay" validate:"min=0,max=1h"`

	Events   []string          `json:"events" validate:"dive,required,max=100"`
	Headers  map[string]string `json:"headers,omitempty"`
	Template *string           `json:"template,omitempty"`
	Enabled  bool              `json:"enabled"`

	SuccessCount    int64      `json:"success_count"`
	FailureCount    int64      `json:"failure_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	attemptsSet bool
	delaySet    bool
}

// SetRetryPolicy sets both retry fields and marks them explicit, so zero
// values survive defaulting.
func (c *Config) SetRetryPolicy(attempts int, delay time.Duration) {
	c.RetryAttempts, c.RetryDelay = attempts, delay
	c.attemptsSet, c.delaySet = true, true
}

// configFields drops Config's methods for the JSON codec.
type configFields Config

// configJSON shadows the duration fields with seconds.
type configJSON struct {
	configFields
	Timeout       *float64 `json:"timeout"`
	RetryAttempts *int     `json:"retry_attempts"`
	RetryDelay    *float64 `json:"retry_delay"`
}

func (c Config) MarshalJSON() ([]byte, error) {
	timeout, attempts, delay := c.Timeout.Seconds(), c.RetryAttempts, c.RetryDelay.Seconds()
	return json.Marshal(configJSON{
		configFields:  configFields(c),
		Timeout:       &timeout,
		RetryAttempts: &attempts,
		RetryDelay:    &delay,
	})
}

func (c *Config) UnmarshalJSON(data []byte) error {
	var aux configJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Config(aux.configFields)
	c.Timeout, c.RetryAttempts, c.RetryDelay = 0, 0, 0
	c.attemptsSet, c.delaySet = false, false
	if aux.Timeout != nil {
		c.Timeout = seconds(*aux.Timeout)
	}
	if aux.RetryAttempts != nil {
		c.RetryAttempts, c.attemptsSet = *aux.RetryAttempts, true
	}
	if aux.RetryDelay != nil {
		c.RetryDelay, c.delaySet = seconds(*aux.RetryDelay), true
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}

// Subscribes reports whether the configuration receives eventType.
func (c *Config) Subscribes(eventType string) bool {
	return slices.Contains(c.Events, eventType) || slices.Contains(c.Events, WildcardEvent)
}

// Accepts reports whether the configuration is enabled and subscribed to eventType.
func (c *Config) Accepts(eventType string) bool {
	return c.Enabled && c.Subscribes(eventType)
}

// MethodOrDefault returns the HTTP method, POST when unset.
func (c *Config) MethodOrDefault() string {
	if c.Method == "" {
		return DefaultMethod
	}
	return c.Method
}

// ContentTypeOrDefault returns the content type, application/json when unset.
func (c *Config) ContentTypeOrDefault() string {
	if c.ContentType == "" {
		return DefaultContentType
	}
	return c.ContentType
}

// Clone returns a deep copy so stored configurations cannot be mutated by callers.
func (c Config) Clone() Config {
	c.Events = slices.Clone(c.Events)
	if c.Headers != nil {
		h := make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			h[k] = v
		}
		c.Headers = h
	}
	if c.Template != nil {
		t := *c.Template
		c.Template = &t
	}
	if c.LastTriggeredAt != nil {
		t := *c.LastTriggeredAt
		c.LastTriggeredAt = &t
	}
	return c
}
