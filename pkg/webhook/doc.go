// Package webhook delivers notifications to outbound HTTP endpoints.
//
// A delivery passes through four stages:
//
//   - Renderer turns a configuration's payload template into a body, or
//     builds the default envelope {event, timestamp, data, source}
//   - BuildAuthHeaders maps the configured AuthType and Credentials to
//     request headers; auth headers win over custom headers
//   - Sender performs one HTTP call and classifies the Outcome
//   - Retrier repeats the call up to RetryAttempts+1 times, waiting per its
//     BackoffStrategy (RetryDelay by default), and records one counter
//     update per execution
//
// # Templates
//
// Placeholders are {{event}}, {{timestamp}}, {{data}} and dotted paths
// such as {{data.user.name}} or {{data.items.0}}. String values are
// inserted raw, everything else as JSON. Unresolved placeholders stay in
// the output unchanged:
//
//	tpl := `{"text":"{{data.message}} ({{event}})"}`
//	payload, err := webhook.NewRenderer("notifykit").Render(&tpl, webhook.RenderContext{
//	    Event:     "announcement.published",
//	    Timestamp: time.Now(),
//	    Data:      map[string]any{"message": "Hello"},
//	})
//
// A malformed template yields the default envelope together with an error
// wrapping ErrMalformedTemplate.
//
// # Signing
//
// When a configuration has a Secret the body is signed and sent with:
//
//	X-Webhook-Signature: hex HMAC-SHA256(secret, timestamp + "." + body)
//	X-Webhook-Timestamp: unix seconds
//	X-Webhook-ID:        unique delivery id
//
// Receivers verify with ParseSignature and Verify:
//
//	sig, err := webhook.ParseSignature(r.Header)
//	err = webhook.Verify(secret, body, sig, 5*time.Minute)
//
// # Retries
//
// Every failure class (network errors, timeouts, 4xx and 5xx) is retried
// identically. Configuration errors such as an invalid URL finalize at
// once as a failure, without a network call.
//
// Service wraps a Store with validation, and Test/TestConfig send a single
// "webhook.test" event that leaves the counters untouched.
package webhook
