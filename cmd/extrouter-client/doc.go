// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Extrouter-client is a command-line external router. It connects to
// an extrouter bridge, sends one request or watches the event stream,
// and prints what the bridge sends back in CBOR diagnostic notation.
package main
