// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package server is the TCP side of the external-router bridge.
//
// A [Server] listens on one address and holds at most one client
// connection. While a client is connected, further connections are
// accepted and immediately closed. Each connection runs two
// goroutines:
//
//   - the receiver reads the client magic, then frames, pushing each
//     non-empty payload onto the shared inbound queue
//   - the sender writes the server magic, then frames popped from the
//     connection's own outbound queue
//
// When the receiver sees end of stream or an error it closes the
// socket, which stops the sender, and frees the slot for the next
// client. Messages queued for a connection that goes away are
// discarded; nothing is replayed to the next client.
//
// [Server.Post] hands an encoded message to whichever client is
// connected, or drops it if none is. [Server.Stop] tears everything
// down and waits a bounded time for the goroutines to finish.
package server
