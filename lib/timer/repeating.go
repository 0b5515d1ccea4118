// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import (
	"sync"
	"time"
)

// Repeating runs a callback every interval until cancelled. After each
// run it reschedules itself unless Cancel was called while the
// callback was running.
type Repeating struct {
	scheduler *Scheduler
	interval  time.Duration
	callback  func()

	mu     sync.Mutex
	state  State
	handle Handle
}

// NewRepeating returns an idle Repeating timer. Call Start to arm it.
func NewRepeating(scheduler *Scheduler, interval time.Duration, callback func()) *Repeating {
	return &Repeating{
		scheduler: scheduler,
		interval:  clampInterval(interval),
		callback:  callback,
	}
}

// Interval returns the effective interval after clamping.
func (r *Repeating) Interval() time.Duration { return r.interval }

// Start arms the first firing. It has no effect unless the timer is
// idle.
func (r *Repeating) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return
	}
	r.state = StateScheduled
	r.handle = r.scheduler.Schedule(r.interval, r.fire)
}

// Cancel stops all future firings. It returns true the first time it
// is called and false afterwards.
func (r *Repeating) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateCancelled {
		return false
	}
	r.state = StateCancelled
	r.scheduler.Cancel(r.handle)
	return true
}

// State returns the timer's current state. A Repeating timer is
// scheduled between firings and never reports StateFired.
func (r *Repeating) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Repeating) fire() {
	r.mu.Lock()
	live := r.state == StateScheduled
	r.mu.Unlock()
	if !live {
		return
	}

	r.callback()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateScheduled {
		r.handle = r.scheduler.Schedule(r.interval, r.fire)
	}
}
