// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dtn is the boundary between the external-router bridge and
// the bundle daemon it serves.
//
// The bridge never holds daemon objects across calls. It looks bundles
// and links up by identifier each time it needs them ([BundleStore],
// [LinkRegistry]), copies what it will put on the wire into
// [BundleSnapshot] values or reads it through the [Link] accessors,
// and hands work back to the daemon as [Request] values posted to an
// [ActionQueue]. The daemon tells the bridge what happened by calling
// it with [Event] values.
//
// Transport details that only some convergence layers have (a remote
// address, a rate limit) are exposed as optional capabilities on
// [Link] returning an ok flag, so nothing in the bridge switches on
// the convergence layer name.
//
// The package has no dependencies beyond the standard library. An
// in-memory daemon implementing these interfaces lives in
// lib/dtn/memory.
package dtn
