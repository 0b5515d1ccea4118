// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bureau-foundation/extrouter/lib/codec"
)

func diagnose(t *testing.T, msg Message) string {
	t.Helper()
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode(%s): %v", msg.Type(), err)
	}
	notation, err := codec.Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose(%s): %v", msg.Type(), err)
	}
	return notation
}

func TestWireLayout(t *testing.T) {
	rate := uint64(1_000_000)
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"hello", &Hello{ServerEID: "ipn:1.0", BundlesReceived: 7, BundlesPending: 3},
			`[1, 0, "ipn:1.0", 7, 3]`},
		{"alert", &Alert{Text: AlertShuttingDown},
			`[2, 0, "shuttingDown"]`},
		{"empty link report", &LinkReport{},
			`[3, 0, []]`},
		{"empty bundle report", &BundleReport{},
			`[8, 0, []]`},
		{"link opened without transport", &LinkOpened{Link: LinkSummary{
			LinkID: "tcp-1", RemoteEID: "ipn:2.0", ConvergenceLayer: "tcp", State: "open", NextHop: "ipn:2.0",
		}}, `[4, 0, ["tcp-1", "ipn:2.0", "tcp", "open", "ipn:2.0", null]]`},
		{"link opened with rate", &LinkOpened{Link: LinkSummary{
			LinkID: "ltp-1", RemoteEID: "ipn:3.0", ConvergenceLayer: "ltpudp", State: "open", NextHop: "ipn:3.0",
			Transport: &Transport{RemoteAddress: "10.0.0.3", RemotePort: 1113, Rate: &rate},
		}}, `[4, 0, ["ltp-1", "ipn:3.0", "ltpudp", "open", "ipn:3.0", ["10.0.0.3", 1113, 1000000]]]`},
		{"link closed", &LinkClosed{LinkID: "ltp-1", Reason: "broken"},
			`[5, 0, "ltp-1", "broken"]`},
		{"bundle transmitted", &BundleTransmitted{LinkID: "ltp-1", BundleID: 42, BytesSent: 0},
			`[10, 0, "ltp-1", 42, 0]`},
		{"custody signal", &CustodySignal{BundleID: 9, Succeeded: true, Reason: 0},
			`[16, 0, 9, true, 0]`},
		{"transmit", &TransmitBundle{BundleID: 42, LinkID: "ltp-1"},
			`[102, 0, 42, "ltp-1"]`},
		{"reconfigure", &LinkReconfigure{LinkID: "ltp-1", Parameters: []KeyValue{
			UintValue("mtu", 1400), BoolValue("reactive_frag", true), IntValue("offset", -5), StringValue("nexthop", "10.0.0.9:1113"),
		}}, `[103, 0, "ltp-1", [["mtu", 1, 1400], ["reactive_frag", 0, true], ["offset", 2, -5], ["nexthop", 3, "10.0.0.9:1113"]]]`},
		{"delete", &DeleteBundle{BundleIDs: []uint64{1, 2, 3}},
			`[106, 0, [1, 2, 3]]`},
		{"shutdown", &Shutdown{},
			`[107, 0]`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := diagnose(t, test.msg); got != test.want {
				t.Errorf("wire form\n got: %s\nwant: %s", got, test.want)
			}
		})
	}
}

func TestDecodeRequestAllTypes(t *testing.T) {
	requests := []Message{
		&LinkQuery{},
		&BundleQuery{},
		&TransmitBundle{BundleID: 42, LinkID: "ltp-1"},
		&LinkReconfigure{LinkID: "udp-1", Parameters: []KeyValue{UintValue("rate", 9600), StringValue("remote_addr", "10.1.1.1")}},
		&LinkClose{LinkID: "tcp-1"},
		&TakeCustody{BundleID: 5},
		&DeleteBundle{BundleIDs: []uint64{1, 2, 3}},
		&Shutdown{},
	}
	for _, request := range requests {
		data, err := Encode(request)
		if err != nil {
			t.Fatalf("Encode(%s): %v", request.Type(), err)
		}
		decoded, err := DecodeRequest(data)
		if err != nil {
			t.Fatalf("DecodeRequest(%s): %v", request.Type(), err)
		}
		if !reflect.DeepEqual(decoded, request) {
			t.Errorf("%s decoded as %#v, want %#v", request.Type(), decoded, request)
		}
	}
}

func TestDecodeEventPreservesNullTransport(t *testing.T) {
	original := &LinkReport{Links: []LinkSummary{
		{LinkID: "tcp-1", ConvergenceLayer: "tcp", State: "available"},
		{LinkID: "udp-1", ConvergenceLayer: "udp", State: "open",
			Transport: &Transport{RemoteAddress: "10.0.0.2", RemotePort: 4556}},
	}}
	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	report := decoded.(*LinkReport)
	if report.Links[0].Transport != nil {
		t.Errorf("first link transport = %+v, want nil", report.Links[0].Transport)
	}
	if transport := report.Links[1].Transport; transport == nil || transport.Rate != nil || transport.RemotePort != 4556 {
		t.Errorf("second link transport = %+v", transport)
	}
}

func TestDecodeRejectsWrongDirection(t *testing.T) {
	hello, _ := Encode(&Hello{ServerEID: "ipn:1.0"})
	if _, err := DecodeRequest(hello); !errors.Is(err, ErrUnknownType) {
		t.Errorf("DecodeRequest(hello) = %v, want ErrUnknownType", err)
	}
	query, _ := Encode(&LinkQuery{})
	if _, err := DecodeEvent(query); !errors.Is(err, ErrUnknownType) {
		t.Errorf("DecodeEvent(link_query) = %v, want ErrUnknownType", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	marshal := func(v any) []byte {
		data, err := codec.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		return data
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"unknown type", marshal([]any{999, 0}), ErrUnknownType},
		{"unsupported version", marshal([]any{100, 1}), ErrUnsupportedVersion},
		{"missing field", marshal([]any{102, 0, 42}), ErrFieldCount},
		{"extra field", marshal([]any{107, 0, "now"}), ErrFieldCount},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := DecodeRequest(test.data); !errors.Is(err, test.want) {
				t.Errorf("DecodeRequest = %v, want %v", err, test.want)
			}
		})
	}

	for name, data := range map[string][]byte{
		"not an array":   marshal(map[string]int{"type": 100}),
		"header only":    marshal([]any{100}),
		"string type":    marshal([]any{"link_query", 0}),
		"mistyped field": marshal([]any{102, 0, "forty-two", "ltp-1"}),
		"value mismatch": marshal([]any{103, 0, "ltp-1", []any{[]any{"mtu", 0, "yes"}}}),
		"garbage":        {0xff, 0x00},
		"bad value_type": marshal([]any{103, 0, "ltp-1", []any{[]any{"mtu", 9, 1}}}),
	} {
		if _, err := DecodeRequest(data); err == nil {
			t.Errorf("%s: DecodeRequest succeeded", name)
		}
	}
}

func TestDecodeHeaderReportsTypeAndVersion(t *testing.T) {
	data, _ := codec.Marshal([]any{102, 3, 42, "ltp-1"})
	header, rest, err := DecodeHeader(data)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if header != (Header{Type: TypeTransmitBundle, Version: 3}) {
		t.Errorf("header = %+v", header)
	}
	if len(rest) != 2 {
		t.Errorf("rest has %d fields, want 2", len(rest))
	}
}

func TestKeyValueValue(t *testing.T) {
	for _, kv := range []struct {
		kv   KeyValue
		want any
	}{
		{BoolValue("a", true), true},
		{UintValue("b", 8), uint64(8)},
		{IntValue("c", -8), int64(-8)},
		{StringValue("d", "x"), "x"},
		{KeyValue{Key: "e", Type: 7}, nil},
	} {
		if got := kv.kv.Value(); got != kv.want {
			t.Errorf("%s Value() = %#v, want %#v", kv.kv.Key, got, kv.want)
		}
	}
	if _, err := Encode(&LinkReconfigure{LinkID: "l", Parameters: []KeyValue{{Key: "e", Type: 7}}}); err == nil {
		t.Error("Encode with an undefined value type succeeded")
	}
}

func TestMessageTypeString(t *testing.T) {
	if got := TypeTransmitBundle.String(); got != "transmit_bundle_req" {
		t.Errorf("String = %q", got)
	}
	if got := MessageType(55).String(); got != "type(55)" {
		t.Errorf("String = %q", got)
	}
	if TypeHello.IsRequest() || !TypeShutdown.IsRequest() {
		t.Error("IsRequest misclassifies hello or shutdown_req")
	}
}
