// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func TestIsExpectedCloseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"unexpected eof", fmt.Errorf("reading frame: %w", io.ErrUnexpectedEOF), true},
		{"closed", &net.OpError{Op: "read", Err: net.ErrClosed}, true},
		{"broken pipe", &net.OpError{Op: "write", Err: os.NewSyscallError("write", unix.EPIPE)}, true},
		{"reset", &net.OpError{Op: "read", Err: os.NewSyscallError("read", unix.ECONNRESET)}, true},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", unix.ECONNREFUSED)}, false},
		{"other", errors.New("bad magic"), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsExpectedCloseError(test.err); got != test.want {
				t.Errorf("IsExpectedCloseError(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestIsAddrInUse(t *testing.T) {
	first, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer first.Close()

	_, err = net.Listen("tcp", first.Addr().String())
	if err == nil {
		t.Fatal("second listen on the same address succeeded")
	}
	if !IsAddrInUse(err) {
		t.Errorf("IsAddrInUse(%v) = false, want true", err)
	}
	if IsAddrInUse(io.EOF) {
		t.Error("IsAddrInUse(io.EOF) = true")
	}
}
