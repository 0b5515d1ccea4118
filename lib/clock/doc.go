// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Everything in the bridge that waits (the keepalive and expiration
// timers, the bind retry backoff, the bounded shutdown wait, the
// shutdown grace delay) takes a Clock instead of calling the time
// package. Production wiring uses Real(); tests use Fake() and move
// time forward explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	keepalive := timer.NewRepeating(scheduler, 30*time.Second, sendHello)
//	keepalive.Start()
//	c.WaitForTimers(1)
//	c.Advance(30 * time.Second) // sendHello runs here, synchronously
//
// WaitForTimers closes the race between a goroutine registering a
// timer and the test advancing past it.
package clock
