// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client connects to an external-router bridge and exchanges
// protocol messages with it. It is what a routing engine (or the
// extrouter-client tool) uses to drive a daemon.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/extrouter/protocol"
)

// DefaultHandshakeTimeout bounds the magic exchange in Dial.
const DefaultHandshakeTimeout = 5 * time.Second

// Options configures Dial. The zero value is usable.
type Options struct {
	// HandshakeTimeout bounds the magic exchange. Default: 5s.
	HandshakeTimeout time.Duration

	// MaxFrameLength bounds received frame payloads. Zero means
	// protocol.DefaultMaxFrameLength.
	MaxFrameLength int
}

// Client is one connection to a bridge. Send is safe for concurrent
// use; Receive must be called from a single goroutine.
type Client struct {
	conn           net.Conn
	reader         *bufio.Reader
	maxFrameLength int

	writeMu sync.Mutex
}

// Dial connects to address and completes the magic handshake.
func Dial(ctx context.Context, address string, options Options) (*Client, error) {
	if options.HandshakeTimeout <= 0 {
		options.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if options.MaxFrameLength <= 0 {
		options.MaxFrameLength = protocol.DefaultMaxFrameLength
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("client: dialing %s: %w", address, err)
	}

	deadline := time.Now().Add(options.HandshakeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: setting handshake deadline: %w", err)
	}

	reader := bufio.NewReader(conn)
	if err := protocol.WriteMagic(conn, protocol.ClientMagic); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: sending magic: %w", err)
	}
	if err := protocol.ExpectMagic(reader, protocol.ServerMagic); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: handshake with %s: %w", address, err)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: clearing handshake deadline: %w", err)
	}

	return &Client{
		conn:           conn,
		reader:         reader,
		maxFrameLength: options.MaxFrameLength,
	}, nil
}

// Send encodes and writes one request.
func (c *Client) Send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("client: encoding %s: %w", msg.Type(), err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := protocol.WriteFrame(c.conn, data); err != nil {
		return fmt.Errorf("client: sending %s: %w", msg.Type(), err)
	}
	return nil
}

// ReceiveRaw returns the next non-empty frame payload. It returns
// io.EOF when the bridge closes the connection between frames.
func (c *Client) ReceiveRaw() ([]byte, error) {
	for {
		payload, err := protocol.ReadFrame(c.reader, c.maxFrameLength)
		if err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			return payload, nil
		}
	}
}

// Receive reads and decodes the next event. A frame that does not
// decode is returned as an error alongside its raw payload; the
// connection stays usable.
func (c *Client) Receive() (protocol.Message, []byte, error) {
	payload, err := c.ReceiveRaw()
	if err != nil {
		return nil, nil, err
	}
	msg, err := protocol.DecodeEvent(payload)
	if err != nil {
		return nil, payload, fmt.Errorf("client: decoding event: %w", err)
	}
	return msg, payload, nil
}

// SetReadDeadline bounds the next Receive.
func (c *Client) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }

// LocalAddr returns the client side of the connection.
func (c *Client) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// Close closes the connection.
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
