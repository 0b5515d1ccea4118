// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/extrouter/lib/clock"
	"github.com/bureau-foundation/extrouter/lib/dtn"
	"github.com/bureau-foundation/extrouter/lib/queue"
	"github.com/bureau-foundation/extrouter/lib/timer"
)

// DeletionPolicy decides whether a bundle may be discarded once it
// has been forwarded.
type DeletionPolicy interface {
	CanDeleteBundle(dtn.BundleSnapshot) bool
}

// Config configures a Daemon.
type Config struct {
	// LocalEID is the daemon's own endpoint. Required.
	LocalEID string

	Links []LinkConfig

	// Logger is required.
	Logger *slog.Logger

	// Clock drives bundle lifetimes. Defaults to clock.Real().
	Clock clock.Clock
}

// Daemon is an in-memory bundle daemon.
type Daemon struct {
	config    Config
	logger    *slog.Logger
	clock     clock.Clock
	scheduler *timer.Scheduler
	store     *Store
	links     *Registry
	actions   *queue.Queue[dtn.Request]

	mu         sync.Mutex
	handler    dtn.EventHandler
	policy     DeletionPolicy
	onShutdown func()
}

// New validates config and builds a Daemon with an empty store.
func New(config Config) (*Daemon, error) {
	if config.LocalEID == "" {
		return nil, fmt.Errorf("memory: LocalEID is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("memory: Logger is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	links, err := newRegistry(config.Links)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}

	d := &Daemon{
		config:    config,
		logger:    config.Logger,
		clock:     config.Clock,
		scheduler: timer.NewScheduler(config.Clock),
		links:     links,
		actions:   queue.New[dtn.Request](),
	}
	d.store = newStore(d.scheduler, d.lifetimeExpired)
	return d, nil
}

// Attach sets where events go and which policy governs deletion after
// a forward. Either may be nil: events are then dropped and forwarded
// bundles are kept.
func (d *Daemon) Attach(handler dtn.EventHandler, policy DeletionPolicy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
	d.policy = policy
}

// OnShutdown sets the function called when a shutdown request is
// applied.
func (d *Daemon) OnShutdown(hook func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onShutdown = hook
}

// LocalEID returns the daemon's endpoint id.
func (d *Daemon) LocalEID() string { return d.config.LocalEID }

// Store returns the bundle store.
func (d *Daemon) Store() *Store { return d.store }

// Registry returns the link registry.
func (d *Daemon) Registry() *Registry { return d.links }

// Post queues a request behind those already waiting.
func (d *Daemon) Post(request dtn.Request) { d.actions.Push(request) }

// PostAtHead queues a request ahead of those already waiting.
func (d *Daemon) PostAtHead(request dtn.Request) { d.actions.PushFront(request) }

// Run applies posted requests until ctx is cancelled. Bundle lifetimes
// stop being enforced when it returns.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.scheduler.Stop()
	for {
		request, err := d.actions.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		d.apply(request)
	}
}

// Receive stores a bundle that arrived on linkID (empty for a bundle
// created locally), arms its lifetime and reports it. The returned
// snapshot carries the assigned id.
func (d *Daemon) Receive(snapshot dtn.BundleSnapshot, linkID string, lifetime time.Duration) (dtn.BundleSnapshot, error) {
	if snapshot.Source == "" {
		return dtn.BundleSnapshot{}, fmt.Errorf("memory: bundle source is required")
	}
	if linkID != "" {
		link, ok := d.links.FindLink(linkID)
		if !ok {
			return dtn.BundleSnapshot{}, fmt.Errorf("memory: link %q not found", linkID)
		}
		if snapshot.PreviousHop == "" {
			snapshot.PreviousHop = link.RemoteEID()
		}
	}
	if snapshot.BPVersion == 0 {
		snapshot.BPVersion = 7
	}
	if snapshot.Destination == d.config.LocalEID {
		snapshot.SingletonDestination = true
	}

	stored := d.store.add(snapshot, lifetime)
	if stored.GBOFID == "" {
		stored, _ = d.store.update(stored.ID, func(b *bundle) {
			b.snapshot.GBOFID = fmt.Sprintf("%s,%d.%d,0,0", b.snapshot.Source, d.clock.Now().Unix(), b.snapshot.ID)
		})
	}

	d.logger.Debug("bundle received", "bundle_id", stored.ID, "link_id", linkID, "source", stored.Source)
	d.emit(dtn.BundleReceived{Bundle: stored, LinkID: linkID})
	return stored, nil
}

// Deliver records local delivery of a bundle and reports it.
func (d *Daemon) Deliver(id dtn.BundleID) error {
	snapshot, ok := d.store.update(id, func(b *bundle) { b.snapshot.Delivered = true })
	if !ok {
		return fmt.Errorf("memory: bundle %d not found", id)
	}
	d.emit(dtn.BundleDelivered{BundleID: id})
	d.deleteIfAllowed(snapshot)
	return nil
}

// OpenLink opens a link, reports the contact, and sends any bundles
// that were queued on it while it was closed.
func (d *Daemon) OpenLink(name string) error {
	previous, err := d.links.setState(name, dtn.LinkStateOpen)
	if err != nil {
		return err
	}
	if previous == dtn.LinkStateOpen {
		return nil
	}
	link, _ := d.links.FindLink(name)
	d.logger.Info("link opened", "link_id", name)
	d.emit(dtn.ContactUp{Link: link})

	for _, id := range d.store.queuedOn(name) {
		d.send(dtn.SendBundleRequest{BundleID: id, LinkID: name, Action: dtn.ForwardAction})
	}
	return nil
}

// CloseLink closes an open link and reports the contact going down.
// The link stays available for reopening.
func (d *Daemon) CloseLink(name string, reason dtn.ContactDownReason) error {
	previous, err := d.links.setState(name, dtn.LinkStateAvailable)
	if err != nil {
		return err
	}
	if previous != dtn.LinkStateOpen && previous != dtn.LinkStateBusy && previous != dtn.LinkStateOpening {
		return nil
	}
	if reason == "" {
		reason = dtn.ReasonNoInfo
	}
	d.logger.Info("link closed", "link_id", name, "reason", string(reason))
	d.emit(dtn.ContactDown{LinkID: name, Reason: reason})
	return nil
}

// SetAvailable marks a closed link available or unavailable. An open
// link made unavailable is closed first.
func (d *Daemon) SetAvailable(name string, available bool) error {
	if !available {
		if link, ok := d.links.FindLink(name); ok && link.State() == dtn.LinkStateOpen {
			if err := d.CloseLink(name, dtn.ReasonBroken); err != nil {
				return err
			}
		}
	}

	state := dtn.LinkStateUnavailable
	if available {
		state = dtn.LinkStateAvailable
	}
	previous, err := d.links.setState(name, state)
	if err != nil {
		return err
	}
	if previous == state {
		return nil
	}
	if available {
		d.emit(dtn.LinkAvailable{LinkID: name})
	} else {
		d.emit(dtn.LinkUnavailable{LinkID: name})
	}
	return nil
}

func (d *Daemon) apply(request dtn.Request) {
	switch r := request.(type) {
	case dtn.SendBundleRequest:
		d.send(r)
	case dtn.LinkReconfigureRequest:
		if err := d.links.reconfigure(r.LinkID, r.Parameters); err != nil {
			d.logger.Warn("link reconfigure incomplete", "link_id", r.LinkID, "error", err)
		}
	case dtn.LinkStateChangeRequest:
		d.changeState(r)
	case dtn.TakeCustodyRequest:
		snapshot, ok := d.store.takeCustody(r.BundleID)
		if !ok {
			d.logger.Warn("custody requested for unknown bundle", "bundle_id", r.BundleID)
			return
		}
		d.emit(dtn.CustodyAccepted{BundleID: r.BundleID, CustodyID: snapshot.CustodyID})
	case dtn.DeleteBundleRequest:
		gone, ok := d.store.remove(r.BundleID)
		if !ok {
			d.logger.Debug("delete for bundle already gone", "bundle_id", r.BundleID)
			return
		}
		d.logger.Info("bundle deleted", "bundle_id", r.BundleID)
		if gone.queued {
			d.emit(dtn.BundleCancelled{BundleID: r.BundleID})
		}
	case dtn.LinkQueryRequest:
		d.emit(dtn.LinkReport{})
	case dtn.BundleQueryRequest:
		d.emit(dtn.BundleReport{})
	case dtn.ShutdownRequest:
		d.mu.Lock()
		hook := d.onShutdown
		d.mu.Unlock()
		d.logger.Info("shutdown requested")
		if hook != nil {
			hook()
		}
	default:
		d.logger.Warn("ignoring unknown action request", "request", fmt.Sprintf("%T", request))
	}
}

// send transmits a bundle on an open link. On any other link the
// attempt reports zero bytes and the bundle waits for the link.
func (d *Daemon) send(request dtn.SendBundleRequest) {
	link, ok := d.links.FindLink(request.LinkID)
	if !ok {
		d.logger.Warn("send on unknown link", "link_id", request.LinkID, "bundle_id", request.BundleID)
		return
	}
	open := link.State() == dtn.LinkStateOpen

	snapshot, ok := d.store.update(request.BundleID, func(b *bundle) {
		if open {
			b.queuedOn = ""
			b.snapshot.Transmitted = true
		} else {
			b.queuedOn = request.LinkID
		}
	})
	if !ok {
		d.logger.Debug("send for bundle already gone", "bundle_id", request.BundleID)
		return
	}

	var sent uint64
	if open {
		sent = snapshot.Length
	}
	d.logger.Debug("bundle transmitted",
		"bundle_id", request.BundleID,
		"link_id", request.LinkID,
		"bytes_sent", sent,
		"action", request.Action.String(),
	)
	d.emit(dtn.BundleTransmitted{BundleID: request.BundleID, LinkID: request.LinkID, BytesSent: sent})

	if open && request.Action == dtn.ForwardAction {
		d.deleteIfAllowed(snapshot)
	}
}

func (d *Daemon) changeState(request dtn.LinkStateChangeRequest) {
	var err error
	switch request.State {
	case dtn.LinkStateClosed:
		err = d.CloseLink(request.LinkID, request.Reason)
	case dtn.LinkStateOpen:
		err = d.OpenLink(request.LinkID)
	case dtn.LinkStateAvailable:
		err = d.SetAvailable(request.LinkID, true)
	case dtn.LinkStateUnavailable:
		err = d.SetAvailable(request.LinkID, false)
	default:
		_, err = d.links.setState(request.LinkID, request.State)
	}
	if err != nil {
		d.logger.Warn("link state change failed",
			"link_id", request.LinkID,
			"state", request.State.String(),
			"error", err,
		)
	}
}

// deleteIfAllowed removes a bundle the policy no longer needs kept.
func (d *Daemon) deleteIfAllowed(snapshot dtn.BundleSnapshot) {
	d.mu.Lock()
	policy := d.policy
	d.mu.Unlock()
	if policy == nil || !policy.CanDeleteBundle(snapshot) {
		return
	}
	if _, ok := d.store.remove(snapshot.ID); ok {
		d.logger.Debug("bundle released after forwarding", "bundle_id", snapshot.ID)
	}
}

func (d *Daemon) lifetimeExpired(expired timer.Expired) {
	id := dtn.BundleID(expired.Sequence)
	gone, ok := d.store.expire(id)
	if !ok {
		return
	}
	d.logger.Info("bundle expired", "bundle_id", id, "source", expired.Key)
	if gone.manuallyDeleting {
		return
	}
	d.emit(dtn.BundleExpired{BundleID: id})
}

func (d *Daemon) emit(event dtn.Event) {
	d.mu.Lock()
	handler := d.handler
	d.mu.Unlock()
	if handler != nil {
		handler.HandleEvent(event)
	}
}
