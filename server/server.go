// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/extrouter/lib/clock"
	"github.com/bureau-foundation/extrouter/lib/netutil"
	"github.com/bureau-foundation/extrouter/lib/queue"
	"github.com/bureau-foundation/extrouter/protocol"
)

// Defaults applied by New to zero-valued Config fields.
const (
	DefaultListenAddress     = "127.0.0.1"
	DefaultPort              = 8001
	DefaultBindRetryInterval = 100 * time.Millisecond
	DefaultBindRetryBudget   = 10 * time.Second
	DefaultShutdownWait      = 2 * time.Second
	DefaultHandshakeTimeout  = 5 * time.Second
)

// ErrBindExhausted is returned by Start when the address stayed in use
// for the whole retry budget.
var ErrBindExhausted = errors.New("server: address still in use after retry budget")

// Config configures a Server.
type Config struct {
	// ListenAddress and Port form the listen address. Port 0 picks an
	// ephemeral port; use Addr to find it.
	ListenAddress string
	Port          int

	// BindRetryInterval is the pause between bind attempts that fail
	// with "address in use". BindRetryBudget is the total time spent
	// retrying; a negative budget means a single attempt.
	BindRetryInterval time.Duration
	BindRetryBudget   time.Duration

	// ShutdownWait bounds how long Stop waits for the connection
	// goroutines.
	ShutdownWait time.Duration

	// HandshakeTimeout bounds the wait for the client magic. Negative
	// waits indefinitely.
	HandshakeTimeout time.Duration

	// MaxFrameLength bounds inbound frame payloads. Zero means
	// protocol.DefaultMaxFrameLength.
	MaxFrameLength int

	// Inbound receives every non-empty frame payload read from the
	// client. Required.
	Inbound *queue.Queue[[]byte]

	// Logger is required.
	Logger *slog.Logger

	// Clock drives bind retries and the shutdown wait. Defaults to
	// clock.Real().
	Clock clock.Clock
}

// Server is a single-client framed TCP server.
type Server struct {
	config Config
	logger *slog.Logger
	clock  clock.Clock

	mu       sync.Mutex
	listener net.Listener
	active   *connection
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
	stopped  bool

	accepted      atomic.Uint64
	rejected      atomic.Uint64
	sent          atomic.Uint64
	writeFailures atomic.Uint64
	undeliverable atomic.Uint64
}

// Stats is a point-in-time view of server counters.
type Stats struct {
	Connected     bool
	ConnectionID  string
	RemoteAddress string

	// QueuedMessages and QueuedBytes describe the active connection's
	// outbound queue; HighWater is its largest byte total so far.
	QueuedMessages int
	QueuedBytes    int64
	HighWater      int64

	Accepted      uint64
	Rejected      uint64
	Sent          uint64
	WriteFailures uint64
	// Undeliverable counts messages posted while no client was
	// connected.
	Undeliverable uint64
}

// New validates config and returns an unstarted Server.
func New(config Config) (*Server, error) {
	if config.Inbound == nil {
		return nil, fmt.Errorf("server: Inbound is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("server: Logger is required")
	}
	if config.Port < 0 || config.Port > 65535 {
		return nil, fmt.Errorf("server: Port %d out of range", config.Port)
	}
	if config.ListenAddress == "" {
		config.ListenAddress = DefaultListenAddress
	}
	if config.BindRetryInterval <= 0 {
		config.BindRetryInterval = DefaultBindRetryInterval
	}
	if config.BindRetryBudget == 0 {
		config.BindRetryBudget = DefaultBindRetryBudget
	}
	if config.ShutdownWait <= 0 {
		config.ShutdownWait = DefaultShutdownWait
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.MaxFrameLength <= 0 {
		config.MaxFrameLength = protocol.DefaultMaxFrameLength
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &Server{
		config: config,
		logger: config.Logger,
		clock:  config.Clock,
	}, nil
}

// Start binds the listener, retrying while the address is in use, and
// begins accepting in the background. It returns once the listener is
// bound, or with an error if binding failed for any other reason or
// the retry budget ran out. The server runs until Stop is called or
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server: already started")
	}
	s.started = true
	s.mu.Unlock()

	listener, err := s.bind(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		listener.Close()
		return fmt.Errorf("server: stopped during start")
	}
	s.listener = listener
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	go func() {
		defer close(done)
		s.acceptLoop(ctx, listener)
	}()

	s.logger.Info("external router listener started", "listen_addr", listener.Addr().String())
	return nil
}

func (s *Server) bind(ctx context.Context) (net.Listener, error) {
	address := net.JoinHostPort(s.config.ListenAddress, strconv.Itoa(s.config.Port))
	deadline := s.clock.Now().Add(s.config.BindRetryBudget)
	var listenConfig net.ListenConfig

	for attempt := 1; ; attempt++ {
		listener, err := listenConfig.Listen(ctx, "tcp", address)
		if err == nil {
			if attempt > 1 {
				s.logger.Info("bound after retrying", "listen_addr", address, "attempts", attempt)
			}
			return listener, nil
		}
		if !netutil.IsAddrInUse(err) {
			return nil, fmt.Errorf("server: listening on %s: %w", address, err)
		}
		if s.clock.Now().Add(s.config.BindRetryInterval).After(deadline) {
			return nil, fmt.Errorf("%w: %s after %d attempts", ErrBindExhausted, address, attempt)
		}
		s.logger.Debug("address in use, retrying", "listen_addr", address, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.clock.After(s.config.BindRetryInterval):
		}
	}
}

// Addr returns the bound address, or nil before a successful Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Connected reports whether a client currently holds the slot.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Post queues an encoded message body for the connected client. With
// no client connected the message is dropped.
func (s *Server) Post(message []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		s.undeliverable.Add(1)
		s.logger.Debug("no external router connected, dropping message", "bytes", len(message))
		return
	}
	s.active.outbound.Push(message)
}

// Stats returns current counters.
func (s *Server) Stats() Stats {
	stats := Stats{
		Accepted:      s.accepted.Load(),
		Rejected:      s.rejected.Load(),
		Sent:          s.sent.Load(),
		WriteFailures: s.writeFailures.Load(),
		Undeliverable: s.undeliverable.Load(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.active; c != nil {
		stats.Connected = true
		stats.ConnectionID = c.id
		stats.RemoteAddress = c.remoteAddress
		stats.QueuedMessages = c.outbound.Len()
		stats.QueuedBytes = c.outbound.Bytes()
		stats.HighWater = c.outbound.HighWater()
	}
	return stats
}

// Stop closes the listener and the active connection, then waits up
// to ShutdownWait for the accept loop and connection goroutines to
// exit. It returns false if the wait ran out; the goroutines are left
// to finish on their own. Calling Stop again returns true immediately.
func (s *Server) Stop() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return true
	}
	s.stopped = true
	cancel, listener, done, active := s.cancel, s.listener, s.done, s.active
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if listener != nil {
		listener.Close()
	}
	var pending []<-chan struct{}
	if done != nil {
		pending = append(pending, done)
	}
	if active != nil {
		active.close()
		pending = append(pending, active.done)
	}

	timeout := s.clock.After(s.config.ShutdownWait)
	for _, ch := range pending {
		select {
		case <-ch:
		case <-timeout:
			s.logger.Warn("shutdown wait elapsed with connection still running",
				"shutdown_wait", s.config.ShutdownWait)
			return false
		}
	}
	s.logger.Info("external router listener stopped")
	return true
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		s.install(ctx, conn)
	}
}

// install puts conn in the slot and starts its goroutines, or closes
// it if the slot is taken.
func (s *Server) install(ctx context.Context, conn net.Conn) {
	remoteAddress := conn.RemoteAddr().String()

	s.mu.Lock()
	if s.active != nil || s.stopped {
		activeID := ""
		if s.active != nil {
			activeID = s.active.id
		}
		s.mu.Unlock()
		conn.Close()
		s.rejected.Add(1)
		s.logger.Warn("rejected external router connection, slot occupied",
			"remote_addr", remoteAddress,
			"active_connection_id", activeID,
		)
		return
	}
	connCtx, cancel := context.WithCancel(ctx)
	c := &connection{
		id:            uuid.NewString(),
		conn:          conn,
		remoteAddress: remoteAddress,
		outbound:      queue.NewByteQueue(),
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	s.active = c
	s.mu.Unlock()

	s.accepted.Add(1)
	go s.serve(connCtx, c)
}

// release frees the slot if c still holds it.
func (s *Server) release(c *connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == c {
		s.active = nil
	}
}
