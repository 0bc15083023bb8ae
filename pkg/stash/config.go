package stash

import "time"

const (
	defaultCapMax         = 10000
	defaultCapInterval    = 60 * time.Second
	defaultRetireAfter    = 15 * time.Minute
	defaultRetireInterval = 60 * time.Second
	defaultRefillDelay    = 0
	defaultRefillInterval = 16 * time.Second
	defaultWorkers        = 4
	defaultMaxQueued      = 128
)

// config holds Stash's tunables. An *Interval field of zero or less
// disables that background task entirely, per spec.md §4.6.3.
type config struct {
	capMax      int
	capInterval time.Duration

	retireAfter    time.Duration
	retireInterval time.Duration

	refillDelay    time.Duration
	refillInterval time.Duration

	workers   int
	maxQueued int
}

func defaultConfig() *config {
	return &config{
		capMax:         defaultCapMax,
		capInterval:    defaultCapInterval,
		retireAfter:    defaultRetireAfter,
		retireInterval: defaultRetireInterval,
		refillDelay:    defaultRefillDelay,
		refillInterval: defaultRefillInterval,
		workers:        defaultWorkers,
		maxQueued:      defaultMaxQueued,
	}
}
