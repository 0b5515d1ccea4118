// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the wire format between the bridge and an
// external router.
//
// A connection opens with two unframed 4-byte magic values in network
// byte order: the bridge writes [ServerMagic] ("XRTR") as soon as it
// accepts, and the external router must send [ClientMagic] ("XCLT")
// before anything else. A mismatch ends the connection.
//
// Every later message, in either direction, is a frame:
//
//	[4-byte big-endian length][length bytes of CBOR]
//
// The CBOR body is always an array whose first two elements are the
// message type and version, followed by type-specific fields:
//
//	[2, 0, "shuttingDown"]            alert
//	[102, 0, 42, "ltp-1"]             transmit_bundle_req
//
// Only version 0 is defined. A body with an unknown type, an
// unsupported version, or the wrong number of fields fails to decode;
// the failure is local to that message.
//
// Messages flowing from the bridge to the router (events) use types
// 1-99; requests from the router to the bridge use 100 and up.
// [DecodeRequest] accepts only the latter and [DecodeEvent] only the
// former, so each side rejects traffic that could only have come from
// a confused peer.
package protocol
