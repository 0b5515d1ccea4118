// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dtn

import "fmt"

// LinkState is the lifecycle position of a link.
type LinkState int

const (
	LinkStateUnavailable LinkState = iota
	LinkStateAvailable
	LinkStateOpening
	LinkStateOpen
	LinkStateBusy
	LinkStateClosed
)

var linkStateNames = [...]string{
	LinkStateUnavailable: "unavailable",
	LinkStateAvailable:   "available",
	LinkStateOpening:     "opening",
	LinkStateOpen:        "open",
	LinkStateBusy:        "busy",
	LinkStateClosed:      "closed",
}

// String returns the lower-case state name used on the wire.
func (s LinkState) String() string {
	if s >= 0 && int(s) < len(linkStateNames) {
		return linkStateNames[s]
	}
	return fmt.Sprintf("link_state(%d)", int(s))
}

// ContactDownReason says why a contact ended.
type ContactDownReason string

const (
	ReasonNoInfo    ContactDownReason = "no_info"
	ReasonUser      ContactDownReason = "user"
	ReasonShutdown  ContactDownReason = "shutdown"
	ReasonBroken    ContactDownReason = "broken"
	ReasonCLError   ContactDownReason = "cl_error"
	ReasonCLVersion ContactDownReason = "cl_version"
	ReasonReconnect ContactDownReason = "reconnect"
	ReasonIdle      ContactDownReason = "idle"
	ReasonTimeout   ContactDownReason = "timeout"
)

// Link is a configured path to a next hop.
type Link interface {
	Name() string
	RemoteEID() string

	// ConvergenceLayer names the transport family ("tcp", "udp",
	// "ltpudp", ...).
	ConvergenceLayer() string
	State() LinkState
	NextHop() string

	// RemoteAddress returns the peer address and port when the
	// convergence layer has one.
	RemoteAddress() (address string, port uint16, ok bool)

	// RateLimit returns the configured send rate in bits per second
	// when the convergence layer supports one.
	RateLimit() (bitsPerSecond uint64, ok bool)
}

// LinkRegistry is the daemon's link table.
type LinkRegistry interface {
	FindLink(name string) (Link, bool)

	// Links returns every configured link in a stable order.
	Links() []Link
}
