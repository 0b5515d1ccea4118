// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package queue provides the unbounded FIFO queues that connect the
// bridge's goroutines: inbound frames to the dispatcher, outbound
// frames to the sender, and action requests to the daemon.
//
// Producers never block. Consumers block in Pop until an item arrives
// or their context is cancelled. Readiness is a one-slot notify
// channel, so a burst of pushes wakes a waiting consumer once and the
// consumer drains by looping on Pop.
package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO. The zero value is not usable; call New.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{notify: make(chan struct{}, 1)}
}

// Push appends item to the tail.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
}

// PushFront inserts item at the head, ahead of everything queued.
func (q *Queue[T]) PushFront(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	copy(q.items[1:], q.items)
	q.items[0] = item
	q.mu.Unlock()
	q.signal()
}

// TryPop removes and returns the head item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	} else {
		// Pass the wakeup on in case another consumer is waiting.
		q.signal()
	}
	return item, true
}

// Pop blocks until an item is available or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if item, ok := q.TryPop(); ok {
			return item, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns everything queued.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
