package dtest

import (
	"testing"
	"time"
)

// ScheduleTimeout is how long the "Soon" helpers wait
// before failing the test.
const ScheduleTimeout = 100 * time.Millisecond

// ReceiveSoon returns the next value from ch,
// failing the test if nothing arrives within [ScheduleTimeout].
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	timer := time.NewTimer(ScheduleTimeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("no value received within %s", ScheduleTimeout)
	}

	panic("unreachable")
}

// SendSoon sends v on ch,
// failing the test if the send does not complete within [ScheduleTimeout].
func SendSoon[T any](t testing.TB, ch chan<- T, v T) {
	t.Helper()

	timer := time.NewTimer(ScheduleTimeout)
	defer timer.Stop()

	select {
	case ch <- v:
		// Okay.
	case <-timer.C:
		t.Fatalf("value not sent within %s", ScheduleTimeout)
	}
}

// IsSending asserts that a receive from ch is immediately ready,
// which includes ch being closed.
func IsSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		// Okay.
	default:
		t.Fatal("channel was not ready to send")
	}
}

// NotSending asserts that a receive from ch would block.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		t.Fatal("channel was ready to send")
	default:
		// Okay.
	}
}
