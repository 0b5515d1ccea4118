// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies socket errors seen by the bridge.
package netutil

import (
	"errors"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, a locally closed socket, a broken pipe, or a reset
// from the peer. A client that disconnects mid-write produces one of
// these on the bridge side, and none of them should be logged as an
// error.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET)
}

// IsAddrInUse reports whether err is a bind failure because another
// socket holds the address. Listeners retry on this and give up on
// anything else.
func IsAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
