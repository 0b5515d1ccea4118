// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/extrouter/lib/netutil"
	"github.com/bureau-foundation/extrouter/lib/queue"
	"github.com/bureau-foundation/extrouter/protocol"
)

// connection is the occupant of the server's single slot.
type connection struct {
	id            string
	conn          net.Conn
	remoteAddress string
	outbound      *queue.ByteQueue
	cancel        context.CancelFunc

	// done is closed once both goroutines have exited and the slot
	// has been released.
	done chan struct{}

	closeOnce sync.Once
}

// close cancels the connection's context and closes the socket, which
// unblocks a receiver waiting in Read and a sender waiting in Write.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}

// serve runs the receiver on the calling goroutine and the sender on
// another. The receiver's exit ends the connection.
func (s *Server) serve(ctx context.Context, c *connection) {
	logger := s.logger.With("connection_id", c.id, "remote_addr", c.remoteAddress)
	logger.Debug("external router connection accepted")

	senderDone := make(chan struct{})
	go func() {
		defer close(senderDone)
		s.sendLoop(ctx, c)
	}()

	s.receiveLoop(ctx, c)

	c.close()
	<-senderDone
	dropped := c.outbound.Drain()
	s.release(c)
	close(c.done)

	logger.Info("external router disconnected",
		"dropped_messages", dropped,
		"high_water_bytes", c.outbound.HighWater(),
	)
}

func (s *Server) receiveLoop(ctx context.Context, c *connection) {
	logger := s.logger.With("connection_id", c.id)

	if s.config.HandshakeTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout)) //nolint:realclock socket deadline
	}
	if err := protocol.ExpectMagic(c.conn, protocol.ClientMagic); err != nil {
		switch {
		case ctx.Err() != nil:
		case errors.Is(err, protocol.ErrBadMagic):
			logger.Warn("external router handshake rejected", "error", err)
		case netutil.IsExpectedCloseError(err):
			logger.Debug("connection closed before handshake")
		default:
			logger.Warn("reading external router handshake", "error", err)
		}
		return
	}
	c.conn.SetReadDeadline(time.Time{})
	logger.Info("external router connected", "remote_addr", c.remoteAddress)

	for {
		payload, err := protocol.ReadFrame(c.conn, s.config.MaxFrameLength)
		if err != nil {
			switch {
			case ctx.Err() != nil, netutil.IsExpectedCloseError(err):
				logger.Debug("receiver stopping", "reason", err)
			default:
				logger.Warn("reading from external router", "error", err)
			}
			return
		}
		if len(payload) == 0 {
			continue
		}
		logger.Debug("frame received", "bytes", len(payload))
		s.config.Inbound.Push(payload)
	}
}

func (s *Server) sendLoop(ctx context.Context, c *connection) {
	logger := s.logger.With("connection_id", c.id)

	if err := protocol.WriteMagic(c.conn, protocol.ServerMagic); err != nil {
		if ctx.Err() == nil {
			logger.Warn("writing server magic", "error", err)
		}
		c.close()
		return
	}

	for {
		message, err := c.outbound.Pop(ctx)
		if err != nil {
			return
		}
		if err := protocol.WriteFrame(c.conn, message); err != nil {
			s.writeFailures.Add(1)
			if ctx.Err() != nil || netutil.IsExpectedCloseError(err) {
				logger.Debug("dropping message, connection closing", "bytes", len(message), "error", err)
			} else {
				logger.Error("writing to external router, message dropped", "bytes", len(message), "error", err)
			}
			continue
		}
		s.sent.Add(1)
	}
}
