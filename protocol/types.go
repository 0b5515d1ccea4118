// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// MessageType is the first element of every message body.
type MessageType uint64

// Events, bridge to external router.
const (
	TypeHello             MessageType = 1
	TypeAlert             MessageType = 2
	TypeLinkReport        MessageType = 3
	TypeLinkOpened        MessageType = 4
	TypeLinkClosed        MessageType = 5
	TypeLinkAvailable     MessageType = 6
	TypeLinkUnavailable   MessageType = 7
	TypeBundleReport      MessageType = 8
	TypeBundleReceived    MessageType = 9
	TypeBundleTransmitted MessageType = 10
	TypeBundleDelivered   MessageType = 11
	TypeBundleExpired     MessageType = 12
	TypeBundleCancelled   MessageType = 13
	TypeCustodyTimeout    MessageType = 14
	TypeCustodyAccepted   MessageType = 15
	TypeCustodySignal     MessageType = 16
)

// Requests, external router to bridge.
const (
	TypeLinkQuery           MessageType = 100
	TypeBundleQuery         MessageType = 101
	TypeTransmitBundle      MessageType = 102
	TypeLinkReconfigure     MessageType = 103
	TypeLinkClose           MessageType = 104
	TypeTakeCustody         MessageType = 105
	TypeDeleteBundle        MessageType = 106
	TypeShutdown            MessageType = 107
	firstRequestMessageType             = TypeLinkQuery
)

// Version is the only message version defined.
const Version uint64 = 0

var messageTypeNames = map[MessageType]string{
	TypeHello:             "hello",
	TypeAlert:             "alert",
	TypeLinkReport:        "link_report",
	TypeLinkOpened:        "link_opened",
	TypeLinkClosed:        "link_closed",
	TypeLinkAvailable:     "link_available",
	TypeLinkUnavailable:   "link_unavailable",
	TypeBundleReport:      "bundle_report",
	TypeBundleReceived:    "bundle_received",
	TypeBundleTransmitted: "bundle_transmitted",
	TypeBundleDelivered:   "bundle_delivered",
	TypeBundleExpired:     "bundle_expired",
	TypeBundleCancelled:   "bundle_cancelled",
	TypeCustodyTimeout:    "custody_timeout",
	TypeCustodyAccepted:   "custody_accepted",
	TypeCustodySignal:     "custody_signal",
	TypeLinkQuery:         "link_query",
	TypeBundleQuery:       "bundle_query",
	TypeTransmitBundle:    "transmit_bundle_req",
	TypeLinkReconfigure:   "link_reconfigure_req",
	TypeLinkClose:         "link_close_req",
	TypeTakeCustody:       "take_custody_req",
	TypeDeleteBundle:      "delete_bundle_req",
	TypeShutdown:          "shutdown_req",
}

// String returns the wire name of the type, or "type(N)" for a value
// with no definition.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint64(t))
}

// IsRequest reports whether t is in the request range.
func (t MessageType) IsRequest() bool { return t >= firstRequestMessageType }

// Header is the (type, version) pair that opens every message body.
type Header struct {
	Type    MessageType
	Version uint64
}
