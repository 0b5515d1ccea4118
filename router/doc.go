// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package router is the external-router bridge: it connects a bundle
// daemon to an out-of-process routing engine over the protocol in
// package protocol.
//
// A [Router] owns three pieces:
//
//   - a server.Server that holds the single client connection
//   - a dispatch.Dispatcher that turns the client's requests into
//     daemon action requests
//   - a keepalive timer that sends hello messages
//
// The daemon drives the outbound side by calling [Router.HandleEvent].
// Each event becomes one message for the connected client, except the
// two reports: a link report is always a single message listing every
// link, and a bundle report is split into pages of ReportPageSize
// bundles (an empty store still produces one empty page).
//
// The router holds no routing policy. It also answers the daemon's
// routing-policy questions the way an external router expects:
// [Router.CanDeleteBundle] keeps bundles until they have been sent,
// and [Router.AcceptCustody] never accepts custody on its own.
package router
