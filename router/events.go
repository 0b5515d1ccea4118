// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"github.com/bureau-foundation/extrouter/lib/dtn"
	"github.com/bureau-foundation/extrouter/protocol"
)

// HandleEvent forwards a daemon event to the connected client. Events
// arriving before Start or after Shutdown has begun are dropped.
func (r *Router) HandleEvent(event dtn.Event) {
	if !r.active() {
		return
	}

	switch event.(type) {
	case dtn.LinkReport:
		r.sendLinkReport()
	case dtn.BundleReport:
		r.sendBundleReport()
	default:
		msg := translate(event)
		if msg == nil {
			r.logger.Debug("ignoring daemon event", "event", event)
			return
		}
		r.post(msg)
	}
}

// translate maps a single-message event onto its protocol message.
func translate(event dtn.Event) protocol.Message {
	switch e := event.(type) {
	case dtn.BundleReceived:
		return &protocol.BundleReceived{
			LinkID:  e.LinkID,
			Bundles: []protocol.BundleSummary{summarizeBundle(e.Bundle)},
		}
	case dtn.BundleTransmitted:
		return &protocol.BundleTransmitted{
			LinkID:    e.LinkID,
			BundleID:  uint64(e.BundleID),
			BytesSent: e.BytesSent,
		}
	case dtn.BundleDelivered:
		return &protocol.BundleDelivered{BundleID: uint64(e.BundleID)}
	case dtn.BundleExpired:
		return &protocol.BundleExpired{BundleID: uint64(e.BundleID)}
	case dtn.BundleCancelled:
		return &protocol.BundleCancelled{BundleID: uint64(e.BundleID)}
	case dtn.CustodyTimeout:
		return &protocol.CustodyTimeout{BundleID: uint64(e.BundleID)}
	case dtn.CustodyAccepted:
		return &protocol.CustodyAccepted{
			BundleID:  uint64(e.BundleID),
			CustodyID: e.CustodyID,
		}
	case dtn.CustodyReleased:
		return &protocol.CustodySignal{
			BundleID:  uint64(e.BundleID),
			Succeeded: e.Succeeded,
			Reason:    uint64(e.Reason),
		}
	case dtn.ContactUp:
		return &protocol.LinkOpened{Link: summarizeLink(e.Link)}
	case dtn.ContactDown:
		reason := e.Reason
		if reason == "" {
			reason = dtn.ReasonNoInfo
		}
		return &protocol.LinkClosed{LinkID: e.LinkID, Reason: string(reason)}
	case dtn.LinkAvailable:
		return &protocol.LinkAvailable{LinkID: e.LinkID}
	case dtn.LinkUnavailable:
		return &protocol.LinkUnavailable{LinkID: e.LinkID}
	}
	return nil
}

// sendLinkReport sends every link in one message.
func (r *Router) sendLinkReport() {
	links := r.config.Links.Links()
	summaries := make([]protocol.LinkSummary, 0, len(links))
	for _, link := range links {
		summaries = append(summaries, summarizeLink(link))
	}
	r.post(&protocol.LinkReport{Links: summaries})
}

// sendBundleReport sends the pending bundles in pages of at most
// ReportPageSize. An empty store produces a single empty page.
func (r *Router) sendBundleReport() {
	pageSize := r.config.ReportPageSize
	page := make([]protocol.BundleSummary, 0, min(pageSize, int(r.config.Bundles.PendingCount())))
	pages := 0
	for snapshot := range r.config.Bundles.PendingBundles() {
		page = append(page, summarizeBundle(snapshot))
		if len(page) == pageSize {
			r.post(&protocol.BundleReport{Bundles: page})
			pages++
			page = make([]protocol.BundleSummary, 0, pageSize)
		}
	}
	if len(page) > 0 || pages == 0 {
		r.post(&protocol.BundleReport{Bundles: page})
		pages++
	}
	r.logger.Debug("bundle report sent", "pages", pages)
}

func summarizeLink(link dtn.Link) protocol.LinkSummary {
	summary := protocol.LinkSummary{
		LinkID:           link.Name(),
		RemoteEID:        link.RemoteEID(),
		ConvergenceLayer: link.ConvergenceLayer(),
		State:            link.State().String(),
		NextHop:          link.NextHop(),
	}
	if address, port, ok := link.RemoteAddress(); ok {
		transport := &protocol.Transport{RemoteAddress: address, RemotePort: port}
		if rate, ok := link.RateLimit(); ok {
			transport.Rate = &rate
		}
		summary.Transport = transport
	}
	return summary
}

func summarizeBundle(s dtn.BundleSnapshot) protocol.BundleSummary {
	return protocol.BundleSummary{
		BundleID:         uint64(s.ID),
		BPVersion:        uint64(s.BPVersion),
		CustodyID:        s.CustodyID,
		Source:           s.Source,
		Destination:      s.Destination,
		GBOFID:           s.GBOFID,
		PreviousHop:      s.PreviousHop,
		Length:           s.Length,
		Priority:         uint64(s.Priority),
		CustodyRequested: s.CustodyRequested,
		LocalCustody:     s.LocalCustody,
		SingletonDest:    s.SingletonDestination,
		ExpiredInTransit: s.ExpiredInTransit,
		ECOSFlags:        uint64(s.ECOSFlags),
		ECOSOrdinal:      uint64(s.ECOSOrdinal),
		ECOSFlowLabel:    s.ECOSFlowLabel,
	}
}
