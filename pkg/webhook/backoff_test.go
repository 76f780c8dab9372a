package webhook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

func TestFixedBackoff(t *testing.T) {
	t.Parallel()

	b := webhook.FixedBackoff{Interval: 5 * time.Second}
	assert.Zero(t, b.NextInterval(0))
	for attempt := 1; attempt <= 4; attempt++ {
		assert.Equal(t, 5*time.Second, b.NextInterval(attempt))
	}

	cfg := &webhook.Config{RetryDelay: 250 * time.Millisecond}
	assert.Equal(t, 250*time.Millisecond, webhook.ConfigBackoff(cfg).NextInterval(3))
}
