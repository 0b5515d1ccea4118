// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/extrouter/lib/dtn"
)

// CanDeleteBundle reports whether the daemon may discard a bundle. A
// bundle is kept until it has been transmitted or delivered, while
// the daemon holds custody of it, and always when it is marked
// critical.
func (r *Router) CanDeleteBundle(bundle dtn.BundleSnapshot) bool {
	if !bundle.Transmitted && !bundle.Delivered {
		return false
	}
	if bundle.LocalCustody || bundle.BIBECustody {
		return false
	}
	return !bundle.Critical()
}

// AcceptCustody always declines. Custody is taken only when the
// client sends take_custody.
func (r *Router) AcceptCustody(dtn.BundleSnapshot) bool { return false }

// RoutingState describes the bridge for the daemon's status output.
func (r *Router) RoutingState() string {
	stats := r.server.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "external router (%s)\n", r.config.ServerEID)
	if addr := r.server.Addr(); addr != nil {
		fmt.Fprintf(&b, "  listening on %s\n", addr)
	} else {
		b.WriteString("  not listening\n")
	}
	if stats.Connected {
		fmt.Fprintf(&b, "  client %s from %s\n", stats.ConnectionID, stats.RemoteAddress)
		fmt.Fprintf(&b, "  queued %d messages (%d bytes, high water %d)\n",
			stats.QueuedMessages, stats.QueuedBytes, stats.HighWater)
	} else {
		b.WriteString("  no client connected\n")
	}
	fmt.Fprintf(&b, "  accepted %d, rejected %d, sent %d, write failures %d, undeliverable %d\n",
		stats.Accepted, stats.Rejected, stats.Sent, stats.WriteFailures, stats.Undeliverable)
	return b.String()
}
