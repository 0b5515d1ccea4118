// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch turns inbound external-router requests into daemon
// action requests.
//
// Each request is decoded, checked for a known (type, version), and
// handled by looking its bundle or link up afresh: a bundle may have
// expired and a link may have been removed since the router last heard
// about it. Requests naming something that no longer exists are logged
// and dropped. The router gets no reply either way; it resynchronizes
// with link_query and bundle_query.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/extrouter/lib/dtn"
	"github.com/bureau-foundation/extrouter/lib/queue"
	"github.com/bureau-foundation/extrouter/protocol"
)

var (
	// ErrBundleNotFound is returned by Dispatch when a request names a
	// bundle that does not exist or has expired.
	ErrBundleNotFound = errors.New("dispatch: bundle not found")

	// ErrLinkNotFound is returned by Dispatch when a request names an
	// unknown link.
	ErrLinkNotFound = errors.New("dispatch: link not found")
)

// Config configures a Dispatcher. Every field is required.
type Config struct {
	Bundles dtn.BundleStore
	Links   dtn.LinkRegistry
	Actions dtn.ActionQueue
	Logger  *slog.Logger
}

// Dispatcher routes decoded requests to the daemon's action queue.
type Dispatcher struct {
	bundles dtn.BundleStore
	links   dtn.LinkRegistry
	actions dtn.ActionQueue
	logger  *slog.Logger
}

// New validates config and returns a Dispatcher.
func New(config Config) (*Dispatcher, error) {
	if config.Bundles == nil {
		return nil, fmt.Errorf("dispatch: Bundles is required")
	}
	if config.Links == nil {
		return nil, fmt.Errorf("dispatch: Links is required")
	}
	if config.Actions == nil {
		return nil, fmt.Errorf("dispatch: Actions is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("dispatch: Logger is required")
	}
	return &Dispatcher{
		bundles: config.Bundles,
		links:   config.Links,
		actions: config.Actions,
		logger:  config.Logger,
	}, nil
}

// Run dispatches every message from inbound until ctx is cancelled.
// Failures are logged by Dispatch and never stop the loop.
func (d *Dispatcher) Run(ctx context.Context, inbound *queue.Queue[[]byte]) {
	for {
		raw, err := inbound.Pop(ctx)
		if err != nil {
			return
		}
		d.Dispatch(raw)
	}
}

// Dispatch handles one encoded request. Every failure is logged before
// it is returned; the returned error is informational.
func (d *Dispatcher) Dispatch(raw []byte) error {
	header, _, err := protocol.DecodeHeader(raw)
	if err != nil {
		d.logger.Error("malformed external router message", "bytes", len(raw), "error", err)
		return err
	}
	request, err := protocol.DecodeRequest(raw)
	if err != nil {
		d.logger.Error("undecodable external router message",
			"msg_type", uint64(header.Type),
			"msg_version", header.Version,
			"error", err,
		)
		return err
	}

	switch request := request.(type) {
	case *protocol.LinkQuery:
		d.actions.Post(dtn.LinkQueryRequest{})
		return nil
	case *protocol.BundleQuery:
		d.actions.Post(dtn.BundleQueryRequest{})
		return nil
	case *protocol.TransmitBundle:
		return d.transmit(request)
	case *protocol.LinkReconfigure:
		return d.reconfigure(request)
	case *protocol.LinkClose:
		return d.closeLink(request)
	case *protocol.TakeCustody:
		return d.takeCustody(request)
	case *protocol.DeleteBundle:
		return d.deleteBundles(request)
	case *protocol.Shutdown:
		d.logger.Info("external router requested shutdown")
		d.actions.Post(dtn.ShutdownRequest{})
		return nil
	default:
		// DecodeRequest only returns the types above.
		panic(fmt.Sprintf("dispatch: unhandled request %T", request))
	}
}

// liveBundle returns the bundle if it exists and has not expired.
func (d *Dispatcher) liveBundle(id dtn.BundleID) (dtn.Bundle, bool) {
	bundle, ok := d.bundles.FindBundle(id)
	if !ok || bundle.Expired() {
		return nil, false
	}
	return bundle, true
}

func (d *Dispatcher) transmit(request *protocol.TransmitBundle) error {
	id := dtn.BundleID(request.BundleID)
	if _, ok := d.liveBundle(id); !ok {
		d.logger.Debug("transmit request for missing or expired bundle dropped",
			"bundle_id", request.BundleID,
			"link_id", request.LinkID,
		)
		return fmt.Errorf("%w: %d", ErrBundleNotFound, request.BundleID)
	}
	d.actions.Post(dtn.SendBundleRequest{
		BundleID: id,
		LinkID:   request.LinkID,
		Action:   dtn.ForwardAction,
	})
	return nil
}

func (d *Dispatcher) reconfigure(request *protocol.LinkReconfigure) error {
	if _, ok := d.links.FindLink(request.LinkID); !ok {
		d.logger.Error("reconfigure request for unknown link", "link_id", request.LinkID)
		return fmt.Errorf("%w: %q", ErrLinkNotFound, request.LinkID)
	}
	parameters := make([]dtn.Parameter, 0, len(request.Parameters))
	for _, kv := range request.Parameters {
		parameters = append(parameters, dtn.Parameter{Key: kv.Key, Value: kv.Value()})
	}
	d.actions.PostAtHead(dtn.LinkReconfigureRequest{
		LinkID:     request.LinkID,
		Parameters: parameters,
	})
	return nil
}

func (d *Dispatcher) closeLink(request *protocol.LinkClose) error {
	if _, ok := d.links.FindLink(request.LinkID); !ok {
		d.logger.Warn("close request for unknown link", "link_id", request.LinkID)
		return fmt.Errorf("%w: %q", ErrLinkNotFound, request.LinkID)
	}
	d.actions.PostAtHead(dtn.LinkStateChangeRequest{
		LinkID: request.LinkID,
		State:  dtn.LinkStateClosed,
		Reason: dtn.ReasonNoInfo,
	})
	return nil
}

func (d *Dispatcher) takeCustody(request *protocol.TakeCustody) error {
	id := dtn.BundleID(request.BundleID)
	if _, ok := d.liveBundle(id); !ok {
		d.logger.Warn("custody request for missing or expired bundle", "bundle_id", request.BundleID)
		return fmt.Errorf("%w: %d", ErrBundleNotFound, request.BundleID)
	}
	d.actions.Post(dtn.TakeCustodyRequest{BundleID: id})
	return nil
}

// deleteBundles handles each id on its own: a missing id is logged and
// skipped without affecting the rest.
func (d *Dispatcher) deleteBundles(request *protocol.DeleteBundle) error {
	var errs []error
	for _, rawID := range request.BundleIDs {
		id := dtn.BundleID(rawID)
		bundle, ok := d.bundles.FindBundle(id)
		if !ok {
			d.logger.Warn("delete request for unknown bundle", "bundle_id", rawID)
			errs = append(errs, fmt.Errorf("%w: %d", ErrBundleNotFound, rawID))
			continue
		}
		bundle.SetManuallyDeleting(true)
		if bundle.Expired() {
			d.logger.Debug("delete request for expired bundle", "bundle_id", rawID)
			continue
		}
		d.actions.Post(dtn.DeleteBundleRequest{BundleID: id})
	}
	return errors.Join(errs...)
}
