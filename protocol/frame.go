// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Handshake magic values, written unframed in network byte order.
const (
	ServerMagic uint32 = 0x58525452 // "XRTR"
	ClientMagic uint32 = 0x58434C54 // "XCLT"
)

// frameHeaderLength is the size of the big-endian length prefix.
const frameHeaderLength = 4

// DefaultMaxFrameLength bounds the payload a reader will allocate for
// one frame. A full bundle report page is a few megabytes at most.
const DefaultMaxFrameLength = 64 << 20

var (
	// ErrBadMagic is returned by ExpectMagic when the peer's first
	// four bytes are not the expected magic value.
	ErrBadMagic = errors.New("protocol: bad handshake magic")

	// ErrFrameTooLarge is returned by ReadFrame when a length prefix
	// exceeds the reader's limit.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum length")
)

// EncodeFrame returns payload with its 4-byte big-endian length
// prepended.
func EncodeFrame(payload []byte) []byte {
	frame := make([]byte, frameHeaderLength+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[frameHeaderLength:], payload)
	return frame
}

// WriteFrame writes payload to w as one frame in a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	if _, err := w.Write(EncodeFrame(payload)); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r and returns its payload. It reads
// exactly four length bytes and then exactly that many payload bytes,
// looping over short reads. A zero-length frame returns an empty,
// non-nil payload. maxLength <= 0 means DefaultMaxFrameLength.
//
// A clean end of stream before any length byte returns io.EOF; a
// stream that ends mid-frame returns io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader, maxLength int) ([]byte, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxFrameLength
	}
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading frame length: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if uint64(length) > uint64(maxLength) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, maxLength)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return payload, nil
}

// WriteMagic writes magic as four big-endian bytes.
func WriteMagic(w io.Writer, magic uint32) error {
	var buffer [4]byte
	binary.BigEndian.PutUint32(buffer[:], magic)
	if _, err := w.Write(buffer[:]); err != nil {
		return fmt.Errorf("writing handshake magic: %w", err)
	}
	return nil
}

// ReadMagic reads four big-endian bytes.
func ReadMagic(r io.Reader) (uint32, error) {
	var buffer [4]byte
	if _, err := io.ReadFull(r, buffer[:]); err != nil {
		return 0, fmt.Errorf("reading handshake magic: %w", err)
	}
	return binary.BigEndian.Uint32(buffer[:]), nil
}

// ExpectMagic reads four bytes and returns ErrBadMagic unless they
// equal want.
func ExpectMagic(r io.Reader, want uint32) error {
	got, err := ReadMagic(r)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: got %#08x, want %#08x", ErrBadMagic, got, want)
	}
	return nil
}
