// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timer schedules cancellable callbacks on a [clock.Clock].
//
// A [Scheduler] owns every pending entry and hands out opaque
// [Handle] values. Cancelling a handle tombstones its entry: if the
// underlying clock timer fires anyway (it raced the cancel) the
// scheduler finds no live entry and does nothing. The decision to fire
// or to cancel is made under one mutex, so exactly one of them wins.
// Callbacks run after that mutex is released and may schedule or
// cancel freely.
//
// Two timer shapes sit on top of the scheduler:
//
//   - [Repeating] runs its callback every interval until cancelled.
//     The bridge's hello keepalive is one.
//   - [Expiration] fires once for a (key, sequence) pair and emits an
//     [Expired] value. Bundle lifetimes use it.
//
// Intervals at or below zero are clamped to one second.
package timer
