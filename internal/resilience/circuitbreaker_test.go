package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
	}
}

var errVenue = errors.New("venue failure")

func fail() error    { return errVenue }
func succeed() error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, fail); !errors.Is(err, errVenue) {
			t.Fatalf("attempt %d: err = %v, want venue failure", i, err)
		}
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want open after threshold", cb.State())
	}

	// Open circuit fails fast without calling the venue.
	called := false
	err := cb.Execute(ctx, func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("open circuit must not invoke the function")
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, fail)
	}
	time.Sleep(60 * time.Millisecond)

	// First probe transitions to half-open; two successes close it.
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %s, want half-open after probe", cb.State())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want closed after success threshold", cb.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, fail)
	}
	time.Sleep(60 * time.Millisecond)

	cb.Execute(ctx, fail)
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s, want open again after half-open failure", cb.State())
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())
	ctx := context.Background()

	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)
	cb.Execute(ctx, succeed)
	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)

	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want closed: successes reset the count", cb.State())
	}
}

func TestExecuteWithResult(t *testing.T) {
	cb := NewCircuitBreaker("test", testConfig())
	ctx := context.Background()

	got, err := ExecuteWithResult(cb, ctx, func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Errorf("got %q, %v; want ok, nil", got, err)
	}

	_, err = ExecuteWithResult(cb, ctx, func() (string, error) { return "", errVenue })
	if !errors.Is(err, errVenue) {
		t.Errorf("err = %v, want venue failure", err)
	}

	stats := cb.Stats()
	if stats.TotalRequests != 2 || stats.TotalSuccesses != 1 || stats.TotalFailures != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
