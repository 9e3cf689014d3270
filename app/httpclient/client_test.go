package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/politrack/disclosures/app/breaker"
)

func newTestClient(source string, b *breaker.Breaker) *Client {
	c := NewClient(source, time.Millisecond, 5*time.Second, b, "disclosures-test/1.0")
	c.backoffBase = time.Millisecond
	return c
}

func TestClientRetriesTransientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	b := breaker.NewBreaker("test", 5, 30*time.Second)
	c := newTestClient("test", b)

	data, err := c.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected request to succeed after retries, got: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("Expected body 'ok', got: %s", data)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts, got: %d", got)
	}
}

func TestClientDoesNotRetryPermanentErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	b := breaker.NewBreaker("test", 5, 30*time.Second)
	c := newTestClient("test", b)

	_, err := c.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected StatusError with code 404, got: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly 1 attempt for permanent error, got: %d", got)
	}
}

func TestClientRejectsWhenCircuitOpen(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	b := breaker.NewBreaker("test", 5, 30*time.Second)
	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}

	c := newTestClient("test", b)

	_, err := c.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected circuit-open rejection")
	}
	if !IsCircuitOpen(err) {
		t.Errorf("Expected CircuitOpenError, got: %v", err)
	}

	var openErr *CircuitOpenError
	errors.As(err, &openErr)
	if openErr.RetryAfter <= 0 {
		t.Errorf("Expected positive retry-after hint, got: %v", openErr.RetryAfter)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("Expected no HTTP attempt while circuit open, got: %d", got)
	}
}

func TestClientFeedsBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	b := breaker.NewBreaker("test", 5, 30*time.Second)
	c := newTestClient("test", b)

	c.Get(context.Background(), server.URL)

	if b.Status().Failures != 1 {
		t.Errorf("Expected 1 recorded failure on breaker, got: %d", b.Status().Failures)
	}
}

func TestIsTransientClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"500 response", &StatusError{StatusCode: 500}, true},
		{"503 response", &StatusError{StatusCode: 503}, true},
		{"429 rate limit", &StatusError{StatusCode: 429}, true},
		{"404 not found", &StatusError{StatusCode: 404}, false},
		{"403 forbidden", &StatusError{StatusCode: 403}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.transient {
			t.Errorf("%s: expected transient=%v, got %v", tt.name, tt.transient, got)
		}
	}
}

func TestClientStopsRetryingWhenCircuitOpensMidLoop(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	// Threshold 1: the first failed attempt opens the circuit, so the
	// retry loop must bail out instead of firing attempts 2 and 3.
	b := breaker.NewBreaker("test", 1, 30*time.Second)
	c := newTestClient("test", b)

	_, err := c.Get(context.Background(), server.URL)
	if !IsCircuitOpen(err) {
		t.Fatalf("Expected circuit-open error, got: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 attempt before the circuit opened, got: %d", got)
	}
}
