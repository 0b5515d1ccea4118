// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dtn

// Request is work the bridge hands back to the daemon.
type Request interface {
	isRequest()
}

// ActionQueue accepts requests for the daemon's action processor.
type ActionQueue interface {
	// Post appends a request.
	Post(Request)

	// PostAtHead queues a request ahead of everything already posted.
	// Link reconfiguration and closure use it so they overtake
	// pending sends.
	PostAtHead(Request)
}

// ForwardingAction is how a bundle is handed to a link.
type ForwardingAction int

const (
	// ForwardAction moves the bundle: once sent, this node no longer
	// needs it.
	ForwardAction ForwardingAction = iota + 1
	// CopyAction sends a copy and keeps the bundle.
	CopyAction
)

func (a ForwardingAction) String() string {
	switch a {
	case ForwardAction:
		return "forward"
	case CopyAction:
		return "copy"
	default:
		return "invalid"
	}
}

type SendBundleRequest struct {
	BundleID BundleID
	LinkID   string
	Action   ForwardingAction
}

// Parameter is one link setting. Value is a bool, uint64, int64 or
// string.
type Parameter struct {
	Key   string
	Value any
}

type LinkReconfigureRequest struct {
	LinkID     string
	Parameters []Parameter
}

type LinkStateChangeRequest struct {
	LinkID string
	State  LinkState
	Reason ContactDownReason
}

type TakeCustodyRequest struct{ BundleID BundleID }

type DeleteBundleRequest struct{ BundleID BundleID }

type LinkQueryRequest struct{}

type BundleQueryRequest struct{}

type ShutdownRequest struct{}

func (SendBundleRequest) isRequest()      {}
func (LinkReconfigureRequest) isRequest() {}
func (LinkStateChangeRequest) isRequest() {}
func (TakeCustodyRequest) isRequest()     {}
func (DeleteBundleRequest) isRequest()    {}
func (LinkQueryRequest) isRequest()       {}
func (BundleQueryRequest) isRequest()     {}
func (ShutdownRequest) isRequest()        {}
