// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"sync/atomic"
)

// ByteQueue is a Queue of encoded messages that also tracks the total
// payload bytes queued and the highest total ever observed. The totals
// are diagnostics only; the queue is unbounded.
type ByteQueue struct {
	queue     *Queue[[]byte]
	bytes     atomic.Int64
	highWater atomic.Int64
}

// NewByteQueue returns an empty ByteQueue.
func NewByteQueue() *ByteQueue {
	return &ByteQueue{queue: New[[]byte]()}
}

// Push appends msg and updates the byte totals.
func (b *ByteQueue) Push(msg []byte) {
	total := b.bytes.Add(int64(len(msg)))
	for {
		high := b.highWater.Load()
		if total <= high || b.highWater.CompareAndSwap(high, total) {
			break
		}
	}
	b.queue.Push(msg)
}

// Pop blocks until a message is available or ctx is done.
func (b *ByteQueue) Pop(ctx context.Context) ([]byte, error) {
	msg, err := b.queue.Pop(ctx)
	if err != nil {
		return nil, err
	}
	b.bytes.Add(-int64(len(msg)))
	return msg, nil
}

// Drain discards everything queued and returns how many messages were
// dropped.
func (b *ByteQueue) Drain() int {
	dropped := b.queue.Drain()
	for _, msg := range dropped {
		b.bytes.Add(-int64(len(msg)))
	}
	return len(dropped)
}

// Len returns the number of queued messages.
func (b *ByteQueue) Len() int { return b.queue.Len() }

// Bytes returns the payload bytes currently queued.
func (b *ByteQueue) Bytes() int64 { return b.bytes.Load() }

// HighWater returns the largest value Bytes has reached.
func (b *ByteQueue) HighWater() int64 { return b.highWater.Load() }
