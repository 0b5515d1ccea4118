// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dtn

// Event is a daemon lifecycle notification delivered to the bridge.
type Event interface {
	isEvent()
}

type BundleReceived struct {
	Bundle BundleSnapshot
	LinkID string
}

// BundleTransmitted reports a send attempt. BytesSent is zero when the
// attempt failed.
type BundleTransmitted struct {
	BundleID  BundleID
	LinkID    string
	BytesSent uint64
}

type BundleDelivered struct{ BundleID BundleID }

type BundleExpired struct{ BundleID BundleID }

// BundleCancelled reports that a queued transmission was withdrawn.
type BundleCancelled struct{ BundleID BundleID }

type CustodyTimeout struct{ BundleID BundleID }

type CustodyAccepted struct {
	BundleID  BundleID
	CustodyID uint64
}

// CustodyReleased is emitted when a custody signal releases the
// daemon from custody of a bundle.
type CustodyReleased struct {
	BundleID  BundleID
	Succeeded bool
	Reason    uint8
}

type ContactUp struct{ Link Link }

type ContactDown struct {
	LinkID string
	Reason ContactDownReason
}

type LinkAvailable struct{ LinkID string }

type LinkUnavailable struct{ LinkID string }

// LinkReport asks the bridge to send the full link table.
type LinkReport struct{}

// BundleReport asks the bridge to send the full pending bundle list.
type BundleReport struct{}

func (BundleReceived) isEvent()    {}
func (BundleTransmitted) isEvent() {}
func (BundleDelivered) isEvent()   {}
func (BundleExpired) isEvent()     {}
func (BundleCancelled) isEvent()   {}
func (CustodyTimeout) isEvent()    {}
func (CustodyAccepted) isEvent()   {}
func (CustodyReleased) isEvent()   {}
func (ContactUp) isEvent()         {}
func (ContactDown) isEvent()       {}
func (LinkAvailable) isEvent()     {}
func (LinkUnavailable) isEvent()   {}
func (LinkReport) isEvent()        {}
func (BundleReport) isEvent()      {}

// EventHandler receives daemon events.
type EventHandler interface {
	HandleEvent(Event)
}
