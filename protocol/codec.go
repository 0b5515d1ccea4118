// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/extrouter/lib/codec"
)

var (
	// ErrUnknownType is returned when a body's type is not defined for
	// the direction being decoded.
	ErrUnknownType = errors.New("protocol: unknown message type")

	// ErrUnsupportedVersion is returned for any version other than 0.
	ErrUnsupportedVersion = errors.New("protocol: unsupported message version")

	// ErrFieldCount is returned when a body has more or fewer fields
	// than its type defines.
	ErrFieldCount = errors.New("protocol: wrong number of message fields")
)

// Encode returns the CBOR body for msg (without a frame header).
func Encode(msg Message) ([]byte, error) {
	fields := msg.fields()
	body := make([]any, 0, 2+len(fields))
	body = append(body, uint64(msg.Type()), Version)
	body = append(body, fields...)
	data, err := codec.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", msg.Type(), err)
	}
	return data, nil
}

// DecodeHeader parses the (type, version) pair of a body and returns
// the remaining raw fields. It does not check either value.
func DecodeHeader(data []byte) (Header, []codec.RawMessage, error) {
	elements, err := codec.SplitArray(data)
	if err != nil {
		return Header{}, nil, fmt.Errorf("decoding message body: %w", err)
	}
	if len(elements) < 2 {
		return Header{}, nil, fmt.Errorf("decoding message body: %d elements, need type and version", len(elements))
	}
	var header Header
	if err := codec.Unmarshal(elements[0], &header.Type); err != nil {
		return Header{}, nil, fmt.Errorf("decoding message type: %w", err)
	}
	if err := codec.Unmarshal(elements[1], &header.Version); err != nil {
		return Header{}, nil, fmt.Errorf("decoding message version: %w", err)
	}
	return header, elements[2:], nil
}

// DecodeRequest decodes a body sent by an external router.
func DecodeRequest(data []byte) (Message, error) {
	return decode(data, requestConstructors)
}

// DecodeEvent decodes a body sent by the bridge.
func DecodeEvent(data []byte) (Message, error) {
	return decode(data, eventConstructors)
}

func decode(data []byte, constructors map[MessageType]func() Message) (Message, error) {
	header, rest, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	construct, ok := constructors[header.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %d (version %d)", ErrUnknownType, uint64(header.Type), header.Version)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: %s version %d", ErrUnsupportedVersion, header.Type, header.Version)
	}

	msg := construct()
	fields := msg.fields()
	if len(rest) != len(fields) {
		return nil, fmt.Errorf("%w: %s has %d, want %d", ErrFieldCount, header.Type, len(rest), len(fields))
	}
	for i, field := range fields {
		if err := codec.Unmarshal(rest[i], field); err != nil {
			return nil, fmt.Errorf("decoding %s field %d: %w", header.Type, i, err)
		}
	}
	return msg, nil
}
