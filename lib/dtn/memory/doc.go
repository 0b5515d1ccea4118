// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory is a small in-memory bundle daemon that implements
// the lib/dtn interfaces. It stores bundles and a static link table,
// applies the action requests the bridge posts, and reports what
// happened as dtn events.
//
// It stands in for a full daemon when running the bridge on its own
// and in tests. Bundles arrive through [Daemon.Receive]; links are
// driven with [Daemon.OpenLink], [Daemon.CloseLink] and
// [Daemon.SetAvailable]. A send on a link that is not open reports
// zero bytes sent and leaves the bundle queued on that link until the
// link opens.
package memory
