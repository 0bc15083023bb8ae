package stash

import "time"

// Option configures a Stash at construction time.
type Option func(*config)

// WithCap sets the maximum total cached entries and how often the cap
// task runs. An interval <= 0 disables the cap task.
func WithCap(max int, interval time.Duration) Option {
	return func(c *config) {
		if max > 0 {
			c.capMax = max
		}
		c.capInterval = interval
	}
}

// WithRetirement sets how long an entry may go unused before the
// retirement task drops it, and how often that task runs. An interval
// <= 0 disables the retirement task.
func WithRetirement(maxAge, interval time.Duration) Option {
	return func(c *config) {
		if maxAge > 0 {
			c.retireAfter = maxAge
		}
		c.retireInterval = interval
	}
}

// WithRefill sets how long a stale entry must wait before it is eligible
// for background refill, and how often the refill task runs. An interval
// <= 0 disables the refill task.
func WithRefill(delay, interval time.Duration) Option {
	return func(c *config) {
		if delay >= 0 {
			c.refillDelay = delay
		}
		c.refillInterval = interval
	}
}

// WithWorkerPool overrides the background task worker pool's size and
// queue depth.
func WithWorkerPool(workers, maxQueued int) Option {
	return func(c *config) {
		if workers > 0 {
			c.workers = workers
		}
		if maxQueued > 0 {
			c.maxQueued = maxQueued
		}
	}
}
