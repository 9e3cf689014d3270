package breaker

import (
	"sync"
	"time"
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 30 * time.Second
)

// Status is a point-in-time snapshot of a breaker, exposed for monitoring.
type Status struct {
	Source      string     `json:"source"`
	State       State      `json:"state"`
	Failures    int        `json:"failures"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastFailure *time.Time `json:"last_failure,omitempty"`
}

// Breaker gates outbound calls to a single upstream source. State is
// process-local and resets on restart.
type Breaker struct {
	source           string
	failureThreshold int
	resetTimeout     time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastSuccess *time.Time
	lastFailure *time.Time
	probing     bool
}

func NewBreaker(source string, failureThreshold int, resetTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}

	return &Breaker{
		source:           source,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
	}
}

// Allow reports whether a call may proceed. When the breaker is open it
// returns false together with the remaining cooldown. Once the cooldown has
// elapsed exactly one probe call is admitted (half-open); concurrent calls
// during the probe are rejected.
func (b *Breaker) Allow() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true, 0

	case StateOpen:
		if b.lastFailure != nil {
			elapsed := time.Since(*b.lastFailure)
			if elapsed < b.resetTimeout {
				return false, b.resetTimeout - elapsed
			}
		}
		b.state = StateHalfOpen
		b.probing = true
		return true, 0

	case StateHalfOpen:
		if b.probing {
			return false, b.resetTimeout
		}
		b.probing = true
		return true, 0
	}

	return true, 0
}

// RecordSuccess closes the breaker and resets the failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.lastSuccess = &now
	b.failures = 0
	b.state = StateClosed
	b.probing = false
}

// RecordFailure counts one failure. The breaker opens when consecutive
// failures reach the threshold, or immediately if the half-open probe fails.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.lastFailure = &now
	b.failures++

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.probing = false
		return
	}

	if b.failures >= b.failureThreshold {
		b.state = StateOpen
	}
}

func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Status{
		Source:      b.source,
		State:       b.state,
		Failures:    b.failures,
		LastSuccess: b.lastSuccess,
		LastFailure: b.lastFailure,
	}
}
