// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests never hang on a channel that is never written.
// [Eventually] polls a condition for state that has no channel to wait
// on, such as whether the bridge currently holds a client connection.
// These are the only places tests use real wall-clock timeouts.
//
// [CaptureLogs] returns a *slog.Logger whose records are kept in
// memory, so tests can assert that a code path logged exactly one
// error or warning.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
