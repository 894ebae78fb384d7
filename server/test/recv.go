package test

import (
	"testing"
	"time"
)

// DefaultTimeout is used by the receive helpers.
const DefaultTimeout = 5 * time.Second

// Recv reads a single value from ch or fails the test after DefaultTimeout.
func Recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}

		return v
	case <-time.After(DefaultTimeout):
		t.Fatal("timed out waiting for value")
	}

	var zero T

	return zero
}

// NoRecv fails the test when a value arrives on ch within d.
func NoRecv[T any](t *testing.T, ch <-chan T, d time.Duration) {
	t.Helper()

	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("unexpected value: %+v", v)
		}
	case <-time.After(d):
	}
}
