// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Message is one protocol message. Every message type in this package
// implements it; the set is closed.
type Message interface {
	Type() MessageType

	// fields returns pointers to the message's wire fields in order.
	// Encoding dereferences them and decoding fills them.
	fields() []any
}

// Hello is the keepalive, sent on connect and every hello interval.
type Hello struct {
	ServerEID       string
	BundlesReceived uint64
	BundlesPending  uint64
}

func (*Hello) Type() MessageType { return TypeHello }
func (m *Hello) fields() []any {
	return []any{&m.ServerEID, &m.BundlesReceived, &m.BundlesPending}
}

// AlertShuttingDown is the alert text sent before the bridge stops.
const AlertShuttingDown = "shuttingDown"

// Alert carries a free-form notice.
type Alert struct {
	Text string
}

func (*Alert) Type() MessageType { return TypeAlert }
func (m *Alert) fields() []any  { return []any{&m.Text} }

// LinkReport answers a link_query with every link, possibly none.
type LinkReport struct {
	Links []LinkSummary
}

func (*LinkReport) Type() MessageType { return TypeLinkReport }
func (m *LinkReport) fields() []any  { return []any{&m.Links} }

type LinkOpened struct {
	Link LinkSummary
}

func (*LinkOpened) Type() MessageType { return TypeLinkOpened }
func (m *LinkOpened) fields() []any  { return []any{&m.Link} }

// LinkClosed carries the contact-down reason, one of the dtn reason
// strings ("no_info", "user", "broken", ...).
type LinkClosed struct {
	LinkID string
	Reason string
}

func (*LinkClosed) Type() MessageType { return TypeLinkClosed }
func (m *LinkClosed) fields() []any  { return []any{&m.LinkID, &m.Reason} }

type LinkAvailable struct {
	LinkID string
}

func (*LinkAvailable) Type() MessageType { return TypeLinkAvailable }
func (m *LinkAvailable) fields() []any  { return []any{&m.LinkID} }

type LinkUnavailable struct {
	LinkID string
}

func (*LinkUnavailable) Type() MessageType { return TypeLinkUnavailable }
func (m *LinkUnavailable) fields() []any  { return []any{&m.LinkID} }

// BundleReport is one page of a bundle_query answer. A query over no
// bundles still produces a single empty page.
type BundleReport struct {
	Bundles []BundleSummary
}

func (*BundleReport) Type() MessageType { return TypeBundleReport }
func (m *BundleReport) fields() []any  { return []any{&m.Bundles} }

type BundleReceived struct {
	LinkID  string
	Bundles []BundleSummary
}

func (*BundleReceived) Type() MessageType { return TypeBundleReceived }
func (m *BundleReceived) fields() []any  { return []any{&m.LinkID, &m.Bundles} }

// BundleTransmitted reports a send attempt. BytesSent is zero when the
// transmission failed.
type BundleTransmitted struct {
	LinkID    string
	BundleID  uint64
	BytesSent uint64
}

func (*BundleTransmitted) Type() MessageType { return TypeBundleTransmitted }
func (m *BundleTransmitted) fields() []any {
	return []any{&m.LinkID, &m.BundleID, &m.BytesSent}
}

type BundleDelivered struct {
	BundleID uint64
}

func (*BundleDelivered) Type() MessageType { return TypeBundleDelivered }
func (m *BundleDelivered) fields() []any  { return []any{&m.BundleID} }

type BundleExpired struct {
	BundleID uint64
}

func (*BundleExpired) Type() MessageType { return TypeBundleExpired }
func (m *BundleExpired) fields() []any  { return []any{&m.BundleID} }

type BundleCancelled struct {
	BundleID uint64
}

func (*BundleCancelled) Type() MessageType { return TypeBundleCancelled }
func (m *BundleCancelled) fields() []any  { return []any{&m.BundleID} }

type CustodyTimeout struct {
	BundleID uint64
}

func (*CustodyTimeout) Type() MessageType { return TypeCustodyTimeout }
func (m *CustodyTimeout) fields() []any  { return []any{&m.BundleID} }

type CustodyAccepted struct {
	BundleID  uint64
	CustodyID uint64
}

func (*CustodyAccepted) Type() MessageType { return TypeCustodyAccepted }
func (m *CustodyAccepted) fields() []any  { return []any{&m.BundleID, &m.CustodyID} }

// CustodySignal reports that custody of a bundle was released.
// Reason is the custody signal reason code.
type CustodySignal struct {
	BundleID  uint64
	Succeeded bool
	Reason    uint64
}

func (*CustodySignal) Type() MessageType { return TypeCustodySignal }
func (m *CustodySignal) fields() []any {
	return []any{&m.BundleID, &m.Succeeded, &m.Reason}
}

// LinkQuery asks for one link_report.
type LinkQuery struct{}

func (*LinkQuery) Type() MessageType { return TypeLinkQuery }
func (*LinkQuery) fields() []any     { return nil }

// BundleQuery asks for a paginated bundle_report.
type BundleQuery struct{}

func (*BundleQuery) Type() MessageType { return TypeBundleQuery }
func (*BundleQuery) fields() []any     { return nil }

// TransmitBundle asks the daemon to forward a bundle on a link.
type TransmitBundle struct {
	BundleID uint64
	LinkID   string
}

func (*TransmitBundle) Type() MessageType { return TypeTransmitBundle }
func (m *TransmitBundle) fields() []any  { return []any{&m.BundleID, &m.LinkID} }

// LinkReconfigure replaces or adds link parameters.
type LinkReconfigure struct {
	LinkID     string
	Parameters []KeyValue
}

func (*LinkReconfigure) Type() MessageType { return TypeLinkReconfigure }
func (m *LinkReconfigure) fields() []any  { return []any{&m.LinkID, &m.Parameters} }

type LinkClose struct {
	LinkID string
}

func (*LinkClose) Type() MessageType { return TypeLinkClose }
func (m *LinkClose) fields() []any  { return []any{&m.LinkID} }

type TakeCustody struct {
	BundleID uint64
}

func (*TakeCustody) Type() MessageType { return TypeTakeCustody }
func (m *TakeCustody) fields() []any  { return []any{&m.BundleID} }

// DeleteBundle names any number of bundles; each id is handled on its
// own.
type DeleteBundle struct {
	BundleIDs []uint64
}

func (*DeleteBundle) Type() MessageType { return TypeDeleteBundle }
func (m *DeleteBundle) fields() []any  { return []any{&m.BundleIDs} }

type Shutdown struct{}

func (*Shutdown) Type() MessageType { return TypeShutdown }
func (*Shutdown) fields() []any     { return nil }

var eventConstructors = map[MessageType]func() Message{
	TypeHello:             func() Message { return &Hello{} },
	TypeAlert:             func() Message { return &Alert{} },
	TypeLinkReport:        func() Message { return &LinkReport{} },
	TypeLinkOpened:        func() Message { return &LinkOpened{} },
	TypeLinkClosed:        func() Message { return &LinkClosed{} },
	TypeLinkAvailable:     func() Message { return &LinkAvailable{} },
	TypeLinkUnavailable:   func() Message { return &LinkUnavailable{} },
	TypeBundleReport:      func() Message { return &BundleReport{} },
	TypeBundleReceived:    func() Message { return &BundleReceived{} },
	TypeBundleTransmitted: func() Message { return &BundleTransmitted{} },
	TypeBundleDelivered:   func() Message { return &BundleDelivered{} },
	TypeBundleExpired:     func() Message { return &BundleExpired{} },
	TypeBundleCancelled:   func() Message { return &BundleCancelled{} },
	TypeCustodyTimeout:    func() Message { return &CustodyTimeout{} },
	TypeCustodyAccepted:   func() Message { return &CustodyAccepted{} },
	TypeCustodySignal:     func() Message { return &CustodySignal{} },
}

var requestConstructors = map[MessageType]func() Message{
	TypeLinkQuery:       func() Message { return &LinkQuery{} },
	TypeBundleQuery:     func() Message { return &BundleQuery{} },
	TypeTransmitBundle:  func() Message { return &TransmitBundle{} },
	TypeLinkReconfigure: func() Message { return &LinkReconfigure{} },
	TypeLinkClose:       func() Message { return &LinkClose{} },
	TypeTakeCustody:     func() Message { return &TakeCustody{} },
	TypeDeleteBundle:    func() Message { return &DeleteBundle{} },
	TypeShutdown:        func() Message { return &Shutdown{} },
}
