// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Extrouter runs the in-memory bundle daemon with the external-router
// bridge attached. An external routing engine connects to the bridge
// over TCP, receives the daemon's bundle and link events, and sends
// back transmit, custody, delete and link-control requests.
//
// Configuration is read from --config or EXTROUTER_CONFIG (YAML, see
// lib/config), then individual flags override it. SIGINT and SIGTERM
// shut the bridge down cleanly; SIGUSR1 logs the bridge state.
package main
