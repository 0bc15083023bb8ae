package pool

import "time"

// Option configures a Pool at construction time, following the teacher's
// functional-options style (pkg/database/postgres/options.go).
type Option func(*config)

// WithSlowLogThreshold overrides the duration at or above which Exec logs
// at INFO instead of DEBUG.
func WithSlowLogThreshold(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.slowLogThreshold = d
		}
	}
}

// WithDialRetry bounds the cenkalti/backoff retry budget Start applies to
// each connection's initial dial. maxElapsed of zero disables retrying.
func WithDialRetry(initialDelay, maxInterval, maxElapsed time.Duration) Option {
	return func(c *config) {
		if initialDelay > 0 {
			c.dialInitialDelay = initialDelay
		}
		if maxInterval > 0 {
			c.dialMaxInterval = maxInterval
		}
		c.dialMaxElapsed = maxElapsed
	}
}
