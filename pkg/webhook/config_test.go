package webhook_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

func TestConfig_JSONDurationsInSeconds(t *testing.T) {
	t.Parallel()

	var cfg webhook.Config
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Ops",
		"url": "https://hooks.example.com/ops",
		"timeout": 2.5,
		"retry_attempts": 2,
		"retry_delay": 5,
		"events": ["*"],
		"enabled": true
	}`), &cfg))

	assert.Equal(t, "Ops", cfg.Name)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 2, cfg.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.RetryDelay)
	assert.True(t, cfg.Accepts("anything"))

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.InDelta(t, 2.5, wire["timeout"], 1e-9)
	assert.InDelta(t, 5, wire["retry_delay"], 1e-9)
	assert.InDelta(t, 2, wire["retry_attempts"], 1e-9)
	assert.Equal(t, "https://hooks.example.com/ops", wire["url"])

	var back webhook.Config
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, cfg.Timeout, back.Timeout)
	assert.Equal(t, cfg.RetryDelay, back.RetryDelay)
}

func TestConfig_JSONPointerAndSlice(t *testing.T) {
	t.Parallel()

	tpl := `{"text":"{{event}}"}`
	in := []*webhook.Config{{Name: "a", URL: "https://a.example.com", Template: &tpl, Timeout: time.Second}}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"timeout":1`)

	var out []*webhook.Config
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Template)
	assert.Equal(t, tpl, *out[0].Template)
	assert.Equal(t, time.Second, out[0].Timeout)
}
