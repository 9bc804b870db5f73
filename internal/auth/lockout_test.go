package auth

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(threshold int, d time.Duration) (*LockoutTracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tracker := NewLockoutTracker(threshold, d)
	tracker.now = clock.Now
	return tracker, clock
}

func TestLockoutTracker_Basic(t *testing.T) {
	tracker, _ := newTestTracker(3, time.Minute)
	username := "testuser"

	if tracker.IsLocked(username) {
		t.Error("user should not be locked initially")
	}

	tracker.RecordFailure(username)
	tracker.RecordFailure(username)
	if tracker.IsLocked(username) {
		t.Error("user should not be locked after 2 failures (threshold=3)")
	}

	if !tracker.RecordFailure(username) {
		t.Error("third failure should report a lock")
	}
	if !tracker.IsLocked(username) {
		t.Error("user should be locked after 3 failures")
	}
}

func TestLockoutTracker_LockoutExpires(t *testing.T) {
	tracker, clock := newTestTracker(2, 50*time.Second)
	username := "testuser"

	tracker.RecordFailure(username)
	tracker.RecordFailure(username)
	if !tracker.IsLocked(username) {
		t.Fatal("user should be locked")
	}

	clock.Advance(60 * time.Second)
	if tracker.IsLocked(username) {
		t.Error("lockout should have expired")
	}

	// A new failure after expiry starts counting again.
	if tracker.RecordFailure(username) {
		t.Error("first failure after expiry should not lock")
	}
}

func TestLockoutTracker_ClearFailures(t *testing.T) {
	tracker, _ := newTestTracker(3, time.Hour)
	username := "testuser"

	for i := 0; i < 3; i++ {
		tracker.RecordFailure(username)
	}
	if !tracker.IsLocked(username) {
		t.Fatal("user should be locked")
	}

	tracker.ClearFailures(username)
	if tracker.IsLocked(username) {
		t.Error("user should not be locked after clear")
	}
}

func TestLockoutTracker_RemainingTime(t *testing.T) {
	tracker, clock := newTestTracker(1, time.Hour)

	if tracker.RemainingLockoutTime("u") != 0 {
		t.Error("unlocked account should have no remaining time")
	}
	tracker.RecordFailure("u")
	clock.Advance(15 * time.Minute)
	if got := tracker.RemainingLockoutTime("u"); got != 45*time.Minute {
		t.Errorf("remaining = %v, want 45m", got)
	}
}

func TestLockoutTracker_CaseInsensitiveKeys(t *testing.T) {
	tracker, _ := newTestTracker(2, time.Hour)

	tracker.RecordFailure("Admin")
	tracker.RecordFailure(" admin ")
	if !tracker.IsLocked("ADMIN") {
		t.Error("logins differing only in case should share a lock")
	}
}

func TestLockoutTracker_IndependentUsers(t *testing.T) {
	tracker, _ := newTestTracker(2, time.Hour)

	tracker.RecordFailure("user1")
	tracker.RecordFailure("user1")
	if !tracker.IsLocked("user1") {
		t.Error("user1 should be locked")
	}
	if tracker.IsLocked("user2") {
		t.Error("user2 should not be locked")
	}
}

func TestLockoutTracker_Disabled(t *testing.T) {
	tracker, _ := newTestTracker(0, time.Hour)
	for i := 0; i < 10; i++ {
		if tracker.RecordFailure("u") {
			t.Fatal("threshold 0 should never lock")
		}
	}
}

func TestLockoutTracker_Cleanup(t *testing.T) {
	tracker, clock := newTestTracker(1, time.Minute)
	tracker.RecordFailure("u")
	clock.Advance(2 * time.Minute)

	tracker.cleanup()

	tracker.mu.RLock()
	defer tracker.mu.RUnlock()
	if len(tracker.entries) != 0 {
		t.Errorf("expected expired entry removed, have %d", len(tracker.entries))
	}
}

func TestLockoutTracker_RunStopsOnCancel(t *testing.T) {
	tracker, _ := newTestTracker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
