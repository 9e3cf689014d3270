package httpclient

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// CircuitOpenError is returned without attempting a request when the
// source's breaker is open. RetryAfter tells the caller when a probe will
// next be admitted.
type CircuitOpenError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s, try again after %ds", e.Source, int(e.RetryAfter.Seconds()+0.5))
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d for %s", e.StatusCode, e.URL)
}

// IsTransient reports whether an error is worth retrying: network-level
// failures, timeouts, 5xx responses and 429 rate-limit responses. Other
// 4xx responses are permanent and short-circuit to the caller.
func IsTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == 429
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
