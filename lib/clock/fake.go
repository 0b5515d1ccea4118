// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Fake returns a FakeClock set to initial. Time moves only when
// Advance is called.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{now: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for tests. Pending After, Sleep
// and AfterFunc waiters fire from Advance in deadline order; waiters
// with equal deadlines fire in registration order.
//
// AfterFunc callbacks run synchronously inside Advance, without the
// clock's lock held, so a callback may register new waiters. It must
// not call Advance or Sleep.
type FakeClock struct {
	mu       sync.Mutex
	now      time.Time
	sequence uint64
	pending  waiterHeap
	changed  *sync.Cond
}

type fakeWaiter struct {
	deadline time.Time
	sequence uint64

	// Exactly one of channel and callback is set.
	channel  chan time.Time
	callback func()

	// index is the waiter's position in the heap, or -1 once it has
	// fired or been stopped.
	index int
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that receives once the clock has advanced by
// d. Non-positive durations are ready immediately and register nothing.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.addLocked(&fakeWaiter{deadline: c.now.Add(d), channel: channel})
	return channel
}

// AfterFunc registers f to run once the clock has advanced by d. A
// non-positive d runs f before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stopFunc: func() bool { return false }}
	}

	c.mu.Lock()
	waiter := &fakeWaiter{deadline: c.now.Add(d), callback: f}
	c.addLocked(waiter)
	c.mu.Unlock()

	return &Timer{stopFunc: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if waiter.index < 0 {
			return false
		}
		heap.Remove(&c.pending, waiter.index)
		waiter.index = -1
		c.changed.Broadcast()
		return true
	}}
}

// Sleep blocks until the clock has advanced by d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline is at or before the new time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if c.pending.Len() == 0 || c.pending[0].deadline.After(target) {
			c.mu.Unlock()
			return
		}
		waiter := heap.Pop(&c.pending).(*fakeWaiter)
		waiter.index = -1
		c.changed.Broadcast()
		c.mu.Unlock()

		if waiter.callback != nil {
			waiter.callback()
			continue
		}
		select {
		case waiter.channel <- target:
		default:
		}
	}
}

// WaitForTimers blocks until at least n waiters are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pending.Len() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of waiters that have neither fired
// nor been stopped.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Len()
}

func (c *FakeClock) addLocked(waiter *fakeWaiter) {
	c.sequence++
	waiter.sequence = c.sequence
	heap.Push(&c.pending, waiter)
	c.changed.Broadcast()
}

// waiterHeap orders waiters by deadline, then registration order.
type waiterHeap []*fakeWaiter

func (h waiterHeap) Len() int { return len(h) }

func (h waiterHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].sequence < h[j].sequence
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h waiterHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waiterHeap) Push(x any) {
	waiter := x.(*fakeWaiter)
	waiter.index = len(*h)
	*h = append(*h, waiter)
}

func (h *waiterHeap) Pop() any {
	old := *h
	n := len(old)
	waiter := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return waiter
}
