package webhook

import "errors"

// Error classes:
//   - configuration: the webhook cannot be called as configured; deliveries
//     are still attempted in a degraded form and recorded as failures
//   - delivery: network, timeout or non-2xx responses, retried per config
//   - persistence: store failures, returned to the caller unchanged
var (
	ErrNotFound          = errors.New("webhook: configuration not found")
	ErrInvalidConfig     = errors.New("webhook: invalid configuration")
	ErrUnknownAuthType   = errors.New("webhook: unknown auth type")
	ErrMissingCredential = errors.New("webhook: missing auth credential")
	ErrInvalidURL        = errors.New("webhook: invalid URL")
	ErrInvalidPayload    = errors.New("webhook: invalid payload")

	ErrMalformedTemplate = errors.New("webhook: malformed payload template")

	ErrDeliveryFailed   = errors.New("webhook: delivery failed")
	ErrUnexpectedStatus = errors.New("webhook: unexpected response status")
	ErrTemporaryFailure = errors.New("webhook: temporary failure")
	ErrTimeout          = errors.New("webhook: request timeout")

	ErrInvalidSignature = errors.New("webhook: invalid signature")
)

// IsConfigurationError reports whether err means the webhook is misconfigured
// rather than the endpoint failing.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrUnknownAuthType) ||
		errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrInvalidURL)
}
