// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timer

// State is the lifecycle position of a Repeating or Expiration timer.
type State int

const (
	StateIdle State = iota
	StateScheduled
	StateFired
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateFired:
		return "fired"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
