package breaker

import (
	"sync"
	"time"
)

// Registry holds one breaker per named upstream source. It is injected into
// everything that makes outbound calls; there is no package-level instance.
type Registry struct {
	failureThreshold int
	resetTimeout     time.Duration

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

func NewRegistry(failureThreshold int, resetTimeout time.Duration) *Registry {
	return &Registry{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		breakers:         make(map[string]*Breaker),
	}
}

// Get returns the breaker for a source, creating it on first use.
func (r *Registry) Get(source string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[source]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[source]; ok {
		return b
	}

	b = NewBreaker(source, r.failureThreshold, r.resetTimeout)
	r.breakers[source] = b
	return b
}

// Statuses returns a snapshot of every registered breaker.
func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]Status, 0, len(r.breakers))
	for _, b := range r.breakers {
		statuses = append(statuses, b.Status())
	}
	return statuses
}
