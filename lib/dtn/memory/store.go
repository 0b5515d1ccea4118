// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/extrouter/lib/dtn"
	"github.com/bureau-foundation/extrouter/lib/timer"
)

// Store holds pending bundles in arrival order.
type Store struct {
	scheduler *timer.Scheduler
	expired   func(timer.Expired)

	mu        sync.Mutex
	order     []*bundle
	byID      map[dtn.BundleID]*bundle
	nextID    dtn.BundleID
	custodyID uint64
	received  uint64
}

// bundle is a stored bundle. All fields are guarded by the owning
// store's mutex.
type bundle struct {
	store            *Store
	snapshot         dtn.BundleSnapshot
	expired          bool
	manuallyDeleting bool
	lifetime         *timer.Expiration

	// queuedOn is the link a send is waiting on, or empty.
	queuedOn string
}

func newStore(scheduler *timer.Scheduler, expired func(timer.Expired)) *Store {
	return &Store{
		scheduler: scheduler,
		expired:   expired,
		byID:      make(map[dtn.BundleID]*bundle),
	}
}

func (b *bundle) Snapshot() dtn.BundleSnapshot {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.snapshot
}

func (b *bundle) Expired() bool {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.expired
}

func (b *bundle) SetManuallyDeleting(deleting bool) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.manuallyDeleting = deleting
}

// add assigns the next bundle id, stores the bundle and arms its
// lifetime. A non-positive lifetime never expires.
func (s *Store) add(snapshot dtn.BundleSnapshot, lifetime time.Duration) dtn.BundleSnapshot {
	s.mu.Lock()
	s.nextID++
	snapshot.ID = s.nextID
	stored := &bundle{store: s, snapshot: snapshot}
	s.order = append(s.order, stored)
	s.byID[snapshot.ID] = stored
	s.received++
	if lifetime > 0 {
		stored.lifetime = timer.NewExpiration(s.scheduler, snapshot.Source, uint64(snapshot.ID), lifetime, s.expired)
	}
	s.mu.Unlock()

	// Started outside the lock: a clock that fires inline would
	// re-enter expire.
	if stored.lifetime != nil {
		stored.lifetime.Start()
	}
	return snapshot
}

// FindBundle looks a pending bundle up by id.
func (s *Store) FindBundle(id dtn.BundleID) (dtn.Bundle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return stored, true
}

// PendingBundles yields a snapshot of every pending bundle in arrival
// order. The set is fixed when iteration starts.
func (s *Store) PendingBundles() iter.Seq[dtn.BundleSnapshot] {
	s.mu.Lock()
	snapshots := make([]dtn.BundleSnapshot, len(s.order))
	for i, stored := range s.order {
		snapshots[i] = stored.snapshot
	}
	s.mu.Unlock()
	return slices.Values(snapshots)
}

// ReceivedCount is the number of bundles ever added.
func (s *Store) ReceivedCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

// PendingCount is the number of bundles currently stored.
func (s *Store) PendingCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.order))
}

// update applies change to a stored bundle and returns the result.
func (s *Store) update(id dtn.BundleID, change func(*bundle)) (dtn.BundleSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[id]
	if !ok {
		return dtn.BundleSnapshot{}, false
	}
	change(stored)
	return stored.snapshot, true
}

// takeCustody marks the bundle as held in local custody and assigns
// it a custody id.
func (s *Store) takeCustody(id dtn.BundleID) (dtn.BundleSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[id]
	if !ok {
		return dtn.BundleSnapshot{}, false
	}
	if !stored.snapshot.LocalCustody {
		s.custodyID++
		stored.snapshot.LocalCustody = true
		stored.snapshot.CustodyID = s.custodyID
	}
	return stored.snapshot, true
}

// queuedOn lists the bundles waiting to be sent on link, in arrival
// order.
func (s *Store) queuedOn(link string) []dtn.BundleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []dtn.BundleID
	for _, stored := range s.order {
		if stored.queuedOn == link {
			ids = append(ids, stored.snapshot.ID)
		}
	}
	return ids
}

// removed describes a bundle taken out of the store.
type removed struct {
	snapshot         dtn.BundleSnapshot
	queued           bool
	manuallyDeleting bool
}

// remove takes the bundle out of the store and cancels its lifetime.
func (s *Store) remove(id dtn.BundleID) (removed, bool) {
	s.mu.Lock()
	stored, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return removed{}, false
	}
	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(b *bundle) bool { return b == stored })
	result := removed{
		snapshot:         stored.snapshot,
		queued:           stored.queuedOn != "",
		manuallyDeleting: stored.manuallyDeleting,
	}
	lifetime := stored.lifetime
	s.mu.Unlock()

	if lifetime != nil {
		lifetime.Cancel()
	}
	return result, true
}

// expire marks the bundle expired and removes it. It reports false if
// the bundle was already gone.
func (s *Store) expire(id dtn.BundleID) (removed, bool) {
	s.mu.Lock()
	if stored, ok := s.byID[id]; ok {
		stored.expired = true
	}
	s.mu.Unlock()
	return s.remove(id)
}
