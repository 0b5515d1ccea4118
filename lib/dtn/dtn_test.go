// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dtn

import "testing"

func TestLinkStateString(t *testing.T) {
	for state, want := range map[LinkState]string{
		LinkStateUnavailable: "unavailable",
		LinkStateAvailable:   "available",
		LinkStateOpening:     "opening",
		LinkStateOpen:        "open",
		LinkStateBusy:        "busy",
		LinkStateClosed:      "closed",
		LinkState(42):   "link_state(42)",
		LinkState(-1):   "link_state(-1)",
	} {
		if got := state.String(); got != want {
			t.Errorf("LinkState(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

func TestBundleSnapshotCritical(t *testing.T) {
	if (BundleSnapshot{ECOSFlags: ECOSStreaming | ECOSReliable}).Critical() {
		t.Error("non-critical flags reported critical")
	}
	if !(BundleSnapshot{ECOSFlags: ECOSCritical | ECOSFlowLabel}).Critical() {
		t.Error("critical flag not reported")
	}
}

func TestForwardingActionString(t *testing.T) {
	if ForwardAction.String() != "forward" || CopyAction.String() != "copy" || ForwardingAction(0).String() != "invalid" {
		t.Error("ForwardingAction names are wrong")
	}
}
