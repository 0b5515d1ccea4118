// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// MaxArrayElements bounds any decoded array. A bundle report page
// carries up to 10,000 summaries by default; the limit leaves room for
// larger configured pages without letting a hostile length field
// allocate unbounded memory. Encoders must not produce longer arrays.
const MaxArrayElements = 1 << 20

var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// A report with no links or bundles is an empty array on the
	// wire, never null.
	encOptions.NilContainers = cbor.NilContainerAsEmpty
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		MaxArrayElements: MaxArrayElements,
		// Duplicate keys never appear in the protocol (it has no maps
		// at all); rejecting them catches clients built against a
		// different layout early.
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// ErrNotArray is returned by SplitArray when the top-level item is not
// a CBOR array.
var ErrNotArray = errors.New("codec: top-level item is not an array")

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value. Type alias so consumers
// import only lib/codec, not fxamacker/cbor directly.
type RawMessage = cbor.RawMessage

// Encoder is a CBOR stream encoder.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder.
type Decoder = cbor.Decoder

// NewEncoder returns a CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// SplitArray decodes the top-level CBOR array in data into its raw
// elements without interpreting them. Trailing bytes after the array
// are an error.
func SplitArray(data []byte) ([]RawMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("codec: empty input")
	}
	// Major type 4 (array) occupies the top three bits of the initial
	// byte. Checking it first gives a clearer error than the decoder's
	// type-mismatch message.
	if data[0]>>5 != 4 {
		return nil, ErrNotArray
	}
	var elements []RawMessage
	if err := decMode.Unmarshal(data, &elements); err != nil {
		return nil, err
	}
	return elements, nil
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// entire contents of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
