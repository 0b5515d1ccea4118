// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/extrouter/lib/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestSchedulerFiresOnce(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	calls := 0
	scheduler.Schedule(5*time.Second, func() { calls++ })

	fake.Advance(5 * time.Second)
	fake.Advance(time.Minute)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if pending := scheduler.Pending(); pending != 0 {
		t.Errorf("Pending = %d, want 0", pending)
	}
}

func TestSchedulerCancel(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	calls := 0
	handle := scheduler.Schedule(time.Second, func() { calls++ })

	if !scheduler.Cancel(handle) {
		t.Fatal("first Cancel returned false")
	}
	if scheduler.Cancel(handle) {
		t.Fatal("second Cancel returned true")
	}
	fake.Advance(time.Minute)
	if calls != 0 {
		t.Fatalf("cancelled entry ran %d times", calls)
	}
	if scheduler.Cancel(Handle(9999)) {
		t.Error("Cancel of an unknown handle returned true")
	}
}

func TestSchedulerCancelAfterFire(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	handle := scheduler.Schedule(time.Second, func() {})
	fake.Advance(time.Second)
	if scheduler.Cancel(handle) {
		t.Error("Cancel after fire returned true")
	}
}

// A cancel that loses the race with the clock must still suppress the
// callback: the clock timer fires into a tombstoned entry.
func TestSchedulerTombstoneSuppressesLateFire(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	calls := 0
	handle := scheduler.Schedule(time.Second, func() { calls++ })

	scheduler.mu.Lock()
	delete(scheduler.entries, handle)
	scheduler.mu.Unlock()

	fake.Advance(time.Second)
	if calls != 0 {
		t.Fatalf("tombstoned entry ran %d times", calls)
	}
}

func TestSchedulerClampsNonPositiveInterval(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	calls := 0
	scheduler.Schedule(0, func() { calls++ })
	scheduler.Schedule(-time.Hour, func() { calls++ })

	if calls != 0 {
		t.Fatal("non-positive interval fired immediately")
	}
	fake.Advance(MinimumInterval - time.Millisecond)
	if calls != 0 {
		t.Fatal("clamped entry fired early")
	}
	fake.Advance(time.Millisecond)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestSchedulerStop(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	calls := 0
	for range 3 {
		scheduler.Schedule(time.Second, func() { calls++ })
	}
	scheduler.Stop()
	fake.Advance(time.Minute)
	if calls != 0 {
		t.Fatalf("calls after Stop = %d", calls)
	}
	if fake.PendingCount() != 0 {
		t.Errorf("clock still has %d pending timers", fake.PendingCount())
	}
}

func TestRepeatingFiresEveryInterval(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	calls := 0
	repeating := NewRepeating(scheduler, 30*time.Second, func() { calls++ })
	repeating.Start()

	for want := 1; want <= 3; want++ {
		fake.Advance(30 * time.Second)
		if calls != want {
			t.Fatalf("after %d intervals calls = %d", want, calls)
		}
	}
	if state := repeating.State(); state != StateScheduled {
		t.Errorf("State = %v, want scheduled", state)
	}
}

func TestRepeatingCancelIsIdempotent(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	calls := 0
	repeating := NewRepeating(scheduler, time.Second, func() { calls++ })
	repeating.Start()
	fake.Advance(time.Second)

	if !repeating.Cancel() {
		t.Fatal("first Cancel returned false")
	}
	if repeating.Cancel() {
		t.Fatal("second Cancel returned true")
	}
	fake.Advance(time.Minute)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if scheduler.Pending() != 0 {
		t.Errorf("scheduler still holds %d entries", scheduler.Pending())
	}
}

func TestRepeatingCancelFromCallback(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	calls := 0
	var repeating *Repeating
	repeating = NewRepeating(scheduler, time.Second, func() {
		calls++
		repeating.Cancel()
	})
	repeating.Start()

	fake.Advance(time.Second)
	fake.Advance(time.Second)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if state := repeating.State(); state != StateCancelled {
		t.Errorf("State = %v, want cancelled", state)
	}
}

func TestRepeatingStartTwice(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	calls := 0
	repeating := NewRepeating(scheduler, time.Second, func() { calls++ })
	repeating.Start()
	repeating.Start()

	fake.Advance(time.Second)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRepeatingClampsInterval(t *testing.T) {
	scheduler := NewScheduler(clock.Fake(epoch))
	repeating := NewRepeating(scheduler, 0, func() {})
	if got := repeating.Interval(); got != MinimumInterval {
		t.Errorf("Interval = %v, want %v", got, MinimumInterval)
	}
}

func TestExpirationFiresOnce(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	var emitted []Expired
	expiration := NewExpiration(scheduler, "ipn:2.1", 42, 10*time.Second, func(e Expired) {
		emitted = append(emitted, e)
	})
	if !expiration.Start() {
		t.Fatal("Start returned false")
	}
	if expiration.Start() {
		t.Fatal("second Start returned true")
	}

	fake.Advance(10 * time.Second)
	fake.Advance(10 * time.Second)

	if len(emitted) != 1 {
		t.Fatalf("emitted %d times, want 1", len(emitted))
	}
	if emitted[0] != (Expired{Key: "ipn:2.1", Sequence: 42}) {
		t.Errorf("emitted %+v", emitted[0])
	}
	if state := expiration.State(); state != StateFired {
		t.Errorf("State = %v, want fired", state)
	}
	if expiration.Cancel() {
		t.Error("Cancel after fire returned true")
	}
}

func TestExpirationCancel(t *testing.T) {
	fake := clock.Fake(epoch)
	scheduler := NewScheduler(fake)
	emitted := 0
	expiration := NewExpiration(scheduler, "dtn://a", 1, time.Second, func(Expired) { emitted++ })
	expiration.Start()

	if !expiration.Cancel() {
		t.Fatal("Cancel of a pending expiration returned false")
	}
	if expiration.Cancel() {
		t.Fatal("second Cancel returned true")
	}
	fake.Advance(time.Minute)
	if emitted != 0 {
		t.Fatalf("cancelled expiration emitted %d times", emitted)
	}
}

func TestExpirationCancelBeforeStart(t *testing.T) {
	scheduler := NewScheduler(clock.Fake(epoch))
	expiration := NewExpiration(scheduler, "k", 1, time.Second, func(Expired) {})
	if expiration.Cancel() {
		t.Error("Cancel of an idle expiration returned true")
	}
	if expiration.Start() {
		t.Error("Start after Cancel returned true")
	}
}

func TestCancelRacesFire(t *testing.T) {
	// Real clock: each round either fires or is cancelled, never both.
	scheduler := NewScheduler(clock.Real())
	for range 200 {
		var mu sync.Mutex
		fired := false
		done := make(chan struct{})
		expiration := NewExpiration(scheduler, "race", 1, time.Microsecond, func(Expired) {
			mu.Lock()
			fired = true
			mu.Unlock()
			close(done)
		})
		expiration.Start()
		cancelled := expiration.Cancel()
		if !cancelled {
			<-done
		}
		mu.Lock()
		both := cancelled && fired
		mu.Unlock()
		if both {
			t.Fatal("expiration both fired and reported a successful cancel")
		}
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateIdle:      "idle",
		StateScheduled: "scheduled",
		StateFired:     "fired",
		StateCancelled: "cancelled",
		State(99):      "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
