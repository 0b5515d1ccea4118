// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dtn

import (
	"iter"
	"strconv"
)

// BundleID is the daemon's local identifier for a bundle.
type BundleID uint64

func (id BundleID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ECOS flag bits from the extended class of service block.
const (
	ECOSCritical  uint8 = 0x01
	ECOSStreaming uint8 = 0x02
	ECOSFlowLabel uint8 = 0x04
	ECOSReliable  uint8 = 0x08
)

// BundleSnapshot is a copy of the bundle fields the bridge reports,
// taken at the moment an event fires or a report is built.
type BundleSnapshot struct {
	ID          BundleID
	BPVersion   uint8
	CustodyID   uint64
	Source      string
	Destination string
	// GBOFID is the global bundle-or-fragment identifier in its
	// printable form.
	GBOFID      string
	PreviousHop string
	Length      uint64
	Priority    uint8

	CustodyRequested     bool
	LocalCustody         bool
	BIBECustody          bool
	SingletonDestination bool
	ExpiredInTransit     bool

	ECOSFlags     uint8
	ECOSOrdinal   uint8
	ECOSFlowLabel uint64

	// Transmitted is true once any link has sent the bundle, and
	// Delivered once a local registration has consumed it.
	Transmitted bool
	Delivered   bool
}

// Critical reports whether the ECOS critical flag is set.
func (s BundleSnapshot) Critical() bool { return s.ECOSFlags&ECOSCritical != 0 }

// Bundle is a live handle to a stored bundle, valid only for the
// duration of the call that returned it.
type Bundle interface {
	Snapshot() BundleSnapshot
	Expired() bool

	// SetManuallyDeleting marks the bundle as being removed at an
	// operator's or router's request, so its removal is not reported
	// as an expiry or a delivery.
	SetManuallyDeleting(bool)
}

// BundleStore is the daemon's bundle table.
type BundleStore interface {
	FindBundle(id BundleID) (Bundle, bool)

	// PendingBundles yields a snapshot of every pending bundle in
	// storage order.
	PendingBundles() iter.Seq[BundleSnapshot]

	ReceivedCount() uint64
	PendingCount() uint64
}
