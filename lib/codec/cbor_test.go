// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type sampleSummary struct {
	_        struct{} `cbor:",toarray"`
	BundleID uint64
	Source   string
	Custody  bool
}

func TestMarshalUnmarshalToArray(t *testing.T) {
	original := sampleSummary{BundleID: 42, Source: "ipn:1.0", Custody: true}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// toarray structs encode as a 3-element array: 0x83.
	if data[0] != 0x83 {
		t.Fatalf("first byte = %#x, want 0x83 (array of 3)", data[0])
	}

	var decoded sampleSummary
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	message := []any{uint64(1), uint64(0), "dtn://node", uint64(7), uint64(3)}

	first, err := Marshal(message)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(message)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestSplitArray(t *testing.T) {
	data, err := Marshal([]any{uint64(102), uint64(0), uint64(42), "ltp-1"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	elements, err := SplitArray(data)
	if err != nil {
		t.Fatalf("SplitArray: %v", err)
	}
	if len(elements) != 4 {
		t.Fatalf("got %d elements, want 4", len(elements))
	}

	var linkID string
	if err := Unmarshal(elements[3], &linkID); err != nil {
		t.Fatalf("Unmarshal element 3: %v", err)
	}
	if linkID != "ltp-1" {
		t.Errorf("element 3 = %q, want %q", linkID, "ltp-1")
	}
}

func TestSplitArrayRejectsNonArray(t *testing.T) {
	data, err := Marshal(map[string]int{"type": 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := SplitArray(data); !errors.Is(err, ErrNotArray) {
		t.Errorf("SplitArray(map) error = %v, want ErrNotArray", err)
	}
}

func TestSplitArrayEmptyInput(t *testing.T) {
	if _, err := SplitArray(nil); err == nil {
		t.Error("SplitArray(nil) should fail")
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var value uint64
	if err := Unmarshal([]byte{0xff, 0xfe}, &value); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal([]any{uint64(2), uint64(0), "shuttingDown"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"shuttingDown"`) {
		t.Errorf("notation %q does not contain the alert text", notation)
	}
	if !strings.HasPrefix(notation, "[2, 0,") {
		t.Errorf("notation %q does not start with the header", notation)
	}
}

func BenchmarkMarshalSummaryPage(b *testing.B) {
	page := make([]sampleSummary, 10000)
	for i := range page {
		page[i] = sampleSummary{BundleID: uint64(i), Source: "ipn:1.0"}
	}

	b.ReportAllocs()
	for b.Loop() {
		Marshal(page)
	}
}

func TestMarshalNilSliceAsEmptyArray(t *testing.T) {
	var links []string
	data, err := Marshal(links)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) != 1 || data[0] != 0x80 {
		t.Fatalf("nil slice encoded as %x, want 80", data)
	}
}
