package pool

import "time"

const (
	defaultSlowLogThreshold = time.Second
	defaultDialMaxElapsed   = 0 // disabled: a single dial attempt per slot, matching spec.md's literal "open exactly n connections"
	defaultDialInitialDelay = 100 * time.Millisecond
	defaultDialMaxInterval  = 5 * time.Second
)

// config holds Pool's internal tunables, following the teacher's
// pkg/database/postgres/config.go default-struct-plus-functional-options
// shape.
type config struct {
	slowLogThreshold time.Duration

	// dialMaxElapsed bounds the total time cenkalti/backoff will spend
	// retrying a single connection's initial dial in Start. Zero disables
	// retrying entirely (one attempt per slot).
	dialMaxElapsed   time.Duration
	dialInitialDelay time.Duration
	dialMaxInterval  time.Duration
}

func defaultConfig() *config {
	return &config{
		slowLogThreshold: defaultSlowLogThreshold,
		dialMaxElapsed:   defaultDialMaxElapsed,
		dialInitialDelay: defaultDialInitialDelay,
		dialMaxInterval:  defaultDialMaxInterval,
	}
}
