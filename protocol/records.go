// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/extrouter/lib/codec"
)

// LinkSummary describes one link in link_report and link_opened
// messages:
//
//	[link_id, remote_eid, conv_layer, link_state, next_hop, transport]
type LinkSummary struct {
	_ struct{} `cbor:",toarray"`

	LinkID           string
	RemoteEID        string
	ConvergenceLayer string
	State            string
	NextHop          string

	// Transport is nil when the link's convergence layer exposes no
	// remote address. It encodes as null.
	Transport *Transport
}

// Transport is the per-family detail attached to a LinkSummary:
//
//	[remote_addr, remote_port, rate]
type Transport struct {
	_ struct{} `cbor:",toarray"`

	RemoteAddress string
	RemotePort    uint16

	// Rate is the configured send rate in bits per second, nil when
	// the family has no rate limit.
	Rate *uint64
}

// BundleSummary describes one bundle in bundle_report and
// bundle_received messages. Fields appear on the wire in declaration
// order.
type BundleSummary struct {
	_ struct{} `cbor:",toarray"`

	BundleID         uint64
	BPVersion        uint64
	CustodyID        uint64
	Source           string
	Destination      string
	GBOFID           string
	PreviousHop      string
	Length           uint64
	Priority         uint64
	CustodyRequested bool
	LocalCustody     bool
	SingletonDest    bool
	ExpiredInTransit bool
	ECOSFlags        uint64
	ECOSOrdinal      uint64
	ECOSFlowLabel    uint64
}

// ValueType tags the value of a KeyValue on the wire.
type ValueType uint64

const (
	ValueBool   ValueType = 0
	ValueUint   ValueType = 1
	ValueInt    ValueType = 2
	ValueString ValueType = 3
)

func (v ValueType) String() string {
	switch v {
	case ValueBool:
		return "bool"
	case ValueUint:
		return "uint"
	case ValueInt:
		return "int"
	case ValueString:
		return "string"
	default:
		return fmt.Sprintf("value_type(%d)", uint64(v))
	}
}

// ErrBadValueType is returned when decoding a KeyValue whose value_type
// is not one of the four defined tags.
var ErrBadValueType = errors.New("protocol: unknown key/value value_type")

// KeyValue is one typed link parameter in a link_reconfigure_req:
//
//	[key, value_type, value]
//
// Build one with BoolValue, UintValue, IntValue or StringValue.
type KeyValue struct {
	Key  string
	Type ValueType

	boolValue   bool
	uintValue   uint64
	intValue    int64
	stringValue string
}

func BoolValue(key string, value bool) KeyValue {
	return KeyValue{Key: key, Type: ValueBool, boolValue: value}
}

func UintValue(key string, value uint64) KeyValue {
	return KeyValue{Key: key, Type: ValueUint, uintValue: value}
}

func IntValue(key string, value int64) KeyValue {
	return KeyValue{Key: key, Type: ValueInt, intValue: value}
}

func StringValue(key string, value string) KeyValue {
	return KeyValue{Key: key, Type: ValueString, stringValue: value}
}

// Value returns the typed value as bool, uint64, int64 or string.
func (kv KeyValue) Value() any {
	switch kv.Type {
	case ValueBool:
		return kv.boolValue
	case ValueUint:
		return kv.uintValue
	case ValueInt:
		return kv.intValue
	case ValueString:
		return kv.stringValue
	default:
		return nil
	}
}

// MarshalCBOR encodes the three-element array form.
func (kv KeyValue) MarshalCBOR() ([]byte, error) {
	value := kv.Value()
	if value == nil {
		return nil, fmt.Errorf("%w: %d for key %q", ErrBadValueType, uint64(kv.Type), kv.Key)
	}
	return codec.Marshal([]any{kv.Key, uint64(kv.Type), value})
}

// UnmarshalCBOR decodes the three-element array form, checking that
// the value matches its tag.
func (kv *KeyValue) UnmarshalCBOR(data []byte) error {
	elements, err := codec.SplitArray(data)
	if err != nil {
		return fmt.Errorf("decoding key/value: %w", err)
	}
	if len(elements) != 3 {
		return fmt.Errorf("decoding key/value: %d elements, want 3", len(elements))
	}

	var decoded KeyValue
	if err := codec.Unmarshal(elements[0], &decoded.Key); err != nil {
		return fmt.Errorf("decoding key/value key: %w", err)
	}
	if err := codec.Unmarshal(elements[1], &decoded.Type); err != nil {
		return fmt.Errorf("decoding value_type for %q: %w", decoded.Key, err)
	}

	var target any
	switch decoded.Type {
	case ValueBool:
		target = &decoded.boolValue
	case ValueUint:
		target = &decoded.uintValue
	case ValueInt:
		target = &decoded.intValue
	case ValueString:
		target = &decoded.stringValue
	default:
		return fmt.Errorf("%w: %d for key %q", ErrBadValueType, uint64(decoded.Type), decoded.Key)
	}
	if err := codec.Unmarshal(elements[2], target); err != nil {
		return fmt.Errorf("decoding %s value for %q: %w", decoded.Type, decoded.Key, err)
	}

	*kv = decoded
	return nil
}
