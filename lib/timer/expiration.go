// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timer

import (
	"sync"
	"time"
)

// Expired is emitted once when an Expiration fires.
type Expired struct {
	Key      string
	Sequence uint64
}

// Expiration fires once for a (key, sequence) pair and never
// reschedules.
type Expiration struct {
	scheduler *Scheduler
	key       string
	sequence  uint64
	after     time.Duration
	emit      func(Expired)

	mu     sync.Mutex
	state  State
	handle Handle
}

// NewExpiration returns an idle Expiration that will call emit once,
// after the given delay, when started.
func NewExpiration(scheduler *Scheduler, key string, sequence uint64, after time.Duration, emit func(Expired)) *Expiration {
	return &Expiration{
		scheduler: scheduler,
		key:       key,
		sequence:  sequence,
		after:     clampInterval(after),
		emit:      emit,
	}
}

// Start arms the firing. It returns false if the timer was not idle.
func (e *Expiration) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return false
	}
	e.state = StateScheduled
	e.handle = e.scheduler.Schedule(e.after, e.fire)
	return true
}

// Cancel prevents a pending firing. It returns true only when a
// pending firing was removed.
func (e *Expiration) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateScheduled:
		e.state = StateCancelled
		e.scheduler.Cancel(e.handle)
		return true
	case StateIdle:
		e.state = StateCancelled
	}
	return false
}

// State returns the timer's current state.
func (e *Expiration) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Expiration) fire() {
	e.mu.Lock()
	if e.state != StateScheduled {
		e.mu.Unlock()
		return
	}
	e.state = StateFired
	e.mu.Unlock()

	e.emit(Expired{Key: e.key, Sequence: e.sequence})
}
