// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by every package
// that touches the external router wire format.
//
// Message bodies on the external router connection are CBOR arrays:
// the first two elements are the message type and version, the rest
// are type-specific fields in a fixed order. Nested records (bundle
// and link summaries, key/value parameters) are arrays too, declared
// in Go with the `toarray` struct option:
//
//	type TransportDetail struct {
//	    _          struct{} `cbor:",toarray"`
//	    RemoteAddr string
//	    RemotePort uint16
//	    Rate       *uint64
//	}
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2) so the
// same message always produces the same bytes, which keeps test
// fixtures and captured traffic comparable.
//
// Buffer-oriented use:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Messages whose shape depends on a leading discriminant are split
// into their elements first and decoded element by element:
//
//	elements, err := codec.SplitArray(data)
package codec
