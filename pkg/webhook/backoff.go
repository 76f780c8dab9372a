package webhook

import "time"

// BackoffStrategy computes the wait before a retry.
// Implementations must be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the wait before retry number attempt, starting at 1.
	NextInterval(attempt int) time.Duration
}

// FixedBackoff waits the same interval before every retry.
type FixedBackoff struct {
	Interval time.Duration
}

// NextInterval returns Interval for every retry and zero before the first try.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// ConfigBackoff is the default policy: a fixed wait of cfg.RetryDelay.
func ConfigBackoff(cfg *Config) BackoffStrategy {
	return FixedBackoff{Interval: cfg.RetryDelay}
}
