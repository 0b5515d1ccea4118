// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import (
	"sync"
	"time"

	"github.com/bureau-foundation/extrouter/lib/clock"
)

// MinimumInterval replaces any non-positive interval.
const MinimumInterval = time.Second

// Handle identifies one scheduled entry. The zero Handle is never
// issued.
type Handle uint64

// Scheduler owns pending callbacks. Safe for concurrent use.
type Scheduler struct {
	clock clock.Clock

	mu      sync.Mutex
	next    Handle
	entries map[Handle]*entry
}

type entry struct {
	timer    *clock.Timer
	callback func()
}

// NewScheduler returns a Scheduler driven by c.
func NewScheduler(c clock.Clock) *Scheduler {
	return &Scheduler{
		clock:   c,
		entries: make(map[Handle]*entry),
	}
}

// Schedule arranges for callback to run once after the given delay.
func (s *Scheduler) Schedule(after time.Duration, callback func()) Handle {
	after = clampInterval(after)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	handle := s.next
	scheduled := &entry{callback: callback}
	s.entries[handle] = scheduled
	scheduled.timer = s.clock.AfterFunc(after, func() { s.fire(handle) })
	return handle
}

// Cancel removes the entry for handle. It returns true if the entry
// was pending, false if it already fired, was already cancelled, or
// never existed.
func (s *Scheduler) Cancel(handle Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduled, ok := s.entries[handle]
	if !ok {
		return false
	}
	delete(s.entries, handle)
	scheduled.timer.Stop()
	return true
}

// Pending returns the number of live entries.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels every pending entry.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for handle, scheduled := range s.entries {
		scheduled.timer.Stop()
		delete(s.entries, handle)
	}
}

func (s *Scheduler) fire(handle Handle) {
	s.mu.Lock()
	scheduled, ok := s.entries[handle]
	if ok {
		delete(s.entries, handle)
	}
	s.mu.Unlock()

	if ok {
		scheduled.callback()
	}
}

func clampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return MinimumInterval
	}
	return d
}
