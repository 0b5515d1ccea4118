// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/extrouter/dispatch"
	"github.com/bureau-foundation/extrouter/lib/clock"
	"github.com/bureau-foundation/extrouter/lib/codec"
	"github.com/bureau-foundation/extrouter/lib/dtn"
	"github.com/bureau-foundation/extrouter/lib/queue"
	"github.com/bureau-foundation/extrouter/lib/timer"
	"github.com/bureau-foundation/extrouter/protocol"
	"github.com/bureau-foundation/extrouter/server"
)

// Defaults applied by New to zero-valued Config fields.
const (
	DefaultHelloInterval  = 30 * time.Second
	DefaultReportPageSize = 10000
)

// Config configures a Router.
type Config struct {
	// ServerEID is reported in every hello. Required.
	ServerEID string

	// HelloInterval is the keepalive period. Default: 30s.
	HelloInterval time.Duration

	// ShutdownGrace is the pause between sending the shutting-down
	// alert and closing the connection, giving the sender time to
	// write it. Zero closes immediately.
	ShutdownGrace time.Duration

	// ReportPageSize caps the bundles in one bundle_report. Default:
	// 10000.
	ReportPageSize int

	// Server configures the listener. Its Inbound, Logger and Clock
	// are filled in by New when unset.
	Server server.Config

	Bundles dtn.BundleStore
	Links   dtn.LinkRegistry
	Actions dtn.ActionQueue

	// Logger is required.
	Logger *slog.Logger

	// Clock drives the keepalive and the shutdown grace. Defaults to
	// clock.Real().
	Clock clock.Clock
}

// Router bridges daemon events and an external router client.
type Router struct {
	config     Config
	logger     *slog.Logger
	clock      clock.Clock
	server     *server.Server
	dispatcher *dispatch.Dispatcher
	inbound    *queue.Queue[[]byte]
	scheduler  *timer.Scheduler
	keepalive  *timer.Repeating

	// outbound receives every encoded message. It is the server's
	// Post outside of tests.
	outbound func([]byte)

	mu           sync.Mutex
	started      bool
	shuttingDown bool
	listening    bool
	cancel       context.CancelFunc
	dispatchDone chan struct{}
}

// New validates config and builds an unstarted Router.
func New(config Config) (*Router, error) {
	if config.ServerEID == "" {
		return nil, fmt.Errorf("router: ServerEID is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("router: Logger is required")
	}
	if config.HelloInterval <= 0 {
		config.HelloInterval = DefaultHelloInterval
	}
	if config.ShutdownGrace < 0 {
		return nil, fmt.Errorf("router: ShutdownGrace must not be negative")
	}
	if config.ReportPageSize <= 0 {
		config.ReportPageSize = DefaultReportPageSize
	}
	if config.ReportPageSize > codec.MaxArrayElements {
		return nil, fmt.Errorf("router: ReportPageSize %d exceeds the decodable array length %d", config.ReportPageSize, codec.MaxArrayElements)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}

	inbound := config.Server.Inbound
	if inbound == nil {
		inbound = queue.New[[]byte]()
		config.Server.Inbound = inbound
	}
	if config.Server.Logger == nil {
		config.Server.Logger = config.Logger
	}
	if config.Server.Clock == nil {
		config.Server.Clock = config.Clock
	}
	srv, err := server.New(config.Server)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	// dispatch.New checks Bundles, Links and Actions.
	dispatcher, err := dispatch.New(dispatch.Config{
		Bundles: config.Bundles,
		Links:   config.Links,
		Actions: config.Actions,
		Logger:  config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := &Router{
		config:     config,
		logger:     config.Logger,
		clock:      config.Clock,
		server:     srv,
		dispatcher: dispatcher,
		inbound:    inbound,
		scheduler:  timer.NewScheduler(config.Clock),
		outbound:   srv.Post,
	}
	r.keepalive = timer.NewRepeating(r.scheduler, config.HelloInterval, r.keepaliveFired)
	return r, nil
}

// Start begins dispatching, binds the listener, sends the first hello
// and arms the keepalive. A listener that cannot be bound is logged
// and the router runs without one; Start only fails when called twice.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("router: already started")
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.dispatchDone = make(chan struct{})
	done := r.dispatchDone
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.dispatcher.Run(ctx, r.inbound)
	}()

	if err := r.server.Start(ctx); err != nil {
		r.logger.Error("external router listener unavailable, continuing without it", "error", err)
	} else {
		r.mu.Lock()
		r.listening = true
		r.mu.Unlock()
	}

	r.sendHello()
	r.keepalive.Start()

	r.logger.Info("external router bridge started",
		"server_eid", r.config.ServerEID,
		"hello_interval", r.config.HelloInterval,
	)
	return nil
}

// Listening reports whether the listener was bound.
func (r *Router) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

// Addr returns the listener address, or nil if it is not bound.
func (r *Router) Addr() net.Addr { return r.server.Addr() }

// Stats returns the server's counters.
func (r *Router) Stats() server.Stats { return r.server.Stats() }

// Shutdown cancels the keepalive, tells the client the bridge is
// shutting down, waits ShutdownGrace, and stops the server and
// dispatcher. It returns false if the server's bounded wait ran out.
// Only the first call does anything.
func (r *Router) Shutdown() bool {
	r.mu.Lock()
	if !r.started || r.shuttingDown {
		r.mu.Unlock()
		return true
	}
	r.shuttingDown = true
	cancel, done := r.cancel, r.dispatchDone
	r.mu.Unlock()

	r.logger.Info("external router bridge shutting down")
	r.keepalive.Cancel()
	r.post(&protocol.Alert{Text: protocol.AlertShuttingDown})
	if r.config.ShutdownGrace > 0 {
		r.clock.Sleep(r.config.ShutdownGrace)
	}

	stopped := r.server.Stop()
	cancel()
	<-done
	r.scheduler.Stop()
	return stopped
}

// active reports whether events should be forwarded.
func (r *Router) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started && !r.shuttingDown
}

func (r *Router) keepaliveFired() {
	if !r.active() {
		return
	}
	r.sendHello()
}

func (r *Router) sendHello() {
	r.post(&protocol.Hello{
		ServerEID:       r.config.ServerEID,
		BundlesReceived: r.config.Bundles.ReceivedCount(),
		BundlesPending:  r.config.Bundles.PendingCount(),
	})
}

// post encodes msg and hands it to the connected client, if any.
func (r *Router) post(msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		r.logger.Error("encoding outbound message", "msg_type", msg.Type().String(), "error", err)
		return
	}
	r.outbound(data)
}
