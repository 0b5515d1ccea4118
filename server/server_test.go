// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/bureau-foundation/extrouter/lib/queue"
	"github.com/bureau-foundation/extrouter/lib/testutil"
	"github.com/bureau-foundation/extrouter/protocol"
)

type testServer struct {
	*Server
	inbound *queue.Queue[[]byte]
	logs    *testutil.LogCapture
}

func startServer(t *testing.T, modify func(*Config)) *testServer {
	t.Helper()
	logger, logs := testutil.CaptureLogs()
	inbound := queue.New[[]byte]()
	config := Config{
		ListenAddress: "127.0.0.1",
		Port:          0,
		Inbound:       inbound,
		Logger:        logger,
	}
	if modify != nil {
		modify(&config)
	}
	srv, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return &testServer{Server: srv, inbound: inbound, logs: logs}
}

// dial connects and completes the handshake from the client side.
func dial(t *testing.T, srv *testServer) net.Conn {
	t.Helper()
	conn := dialRaw(t, srv)
	if err := protocol.ExpectMagic(conn, protocol.ServerMagic); err != nil {
		t.Fatalf("reading server magic: %v", err)
	}
	if err := protocol.WriteMagic(conn, protocol.ClientMagic); err != nil {
		t.Fatalf("writing client magic: %v", err)
	}
	return conn
}

func dialRaw(t *testing.T, srv *testServer) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func popInbound(t *testing.T, srv *testServer) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	payload, err := srv.inbound.Pop(ctx)
	if err != nil {
		t.Fatalf("waiting for inbound frame: %v", err)
	}
	return payload
}

// requireClosedByServer reads until the server closes the socket.
func requireClosedByServer(t *testing.T, conn net.Conn) {
	t.Helper()
	_, err := io.ReadAll(conn)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.Fatal("server did not close the connection")
	}
}

func TestNewValidation(t *testing.T) {
	logger, _ := testutil.CaptureLogs()
	if _, err := New(Config{Logger: logger}); err == nil {
		t.Error("New without Inbound succeeded")
	}
	if _, err := New(Config{Inbound: queue.New[[]byte]()}); err == nil {
		t.Error("New without Logger succeeded")
	}
	if _, err := New(Config{Inbound: queue.New[[]byte](), Logger: logger, Port: 70000}); err == nil {
		t.Error("New with port 70000 succeeded")
	}
	srv, err := New(Config{Inbound: queue.New[[]byte](), Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if srv.config.ListenAddress != DefaultListenAddress || srv.config.ShutdownWait != DefaultShutdownWait {
		t.Errorf("defaults not applied: %+v", srv.config)
	}
	if srv.config.BindRetryBudget != DefaultBindRetryBudget {
		t.Errorf("BindRetryBudget = %s, want %s", srv.config.BindRetryBudget, DefaultBindRetryBudget)
	}
	if srv.config.HandshakeTimeout != DefaultHandshakeTimeout {
		t.Errorf("HandshakeTimeout = %s, want %s", srv.config.HandshakeTimeout, DefaultHandshakeTimeout)
	}

	disabled, err := New(Config{Inbound: queue.New[[]byte](), Logger: logger, BindRetryBudget: -1, HandshakeTimeout: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if disabled.config.BindRetryBudget >= 0 || disabled.config.HandshakeTimeout >= 0 {
		t.Errorf("negative settings were replaced: %+v", disabled.config)
	}
}

func TestHandshakeAndInboundFrames(t *testing.T) {
	srv := startServer(t, nil)
	conn := dial(t, srv)

	first, _ := protocol.Encode(&protocol.LinkQuery{})
	second, _ := protocol.Encode(&protocol.TransmitBundle{BundleID: 42, LinkID: "ltp-1"})
	for _, payload := range [][]byte{first, {}, second} {
		if err := protocol.WriteFrame(conn, payload); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	if got := popInbound(t, srv); !bytes.Equal(got, first) {
		t.Fatalf("first inbound = %x, want %x", got, first)
	}
	// The empty frame is skipped.
	if got := popInbound(t, srv); !bytes.Equal(got, second) {
		t.Fatalf("second inbound = %x, want %x", got, second)
	}
}

func TestBadMagicClosesConnection(t *testing.T) {
	srv := startServer(t, nil)
	conn := dialRaw(t, srv)
	if err := protocol.ExpectMagic(conn, protocol.ServerMagic); err != nil {
		t.Fatalf("reading server magic: %v", err)
	}
	conn.Write([]byte("GET / HTTP/1.1\r\n"))
	body, _ := protocol.Encode(&protocol.Shutdown{})
	protocol.WriteFrame(conn, body)

	requireClosedByServer(t, conn)
	testutil.Eventually(t, 5*time.Second, func() bool { return !srv.Connected() }, "slot released")

	if srv.inbound.Len() != 0 {
		t.Fatalf("inbound has %d frames after a bad handshake", srv.inbound.Len())
	}
	if srv.logs.Count(slog.LevelWarn) == 0 {
		t.Error("bad handshake was not logged")
	}

	// The slot is free for a well-behaved client.
	good := dial(t, srv)
	protocol.WriteFrame(good, body)
	if got := popInbound(t, srv); !bytes.Equal(got, body) {
		t.Fatalf("inbound = %x, want %x", got, body)
	}
}

func TestSecondClientRejected(t *testing.T) {
	srv := startServer(t, nil)
	first := dial(t, srv)
	testutil.Eventually(t, 5*time.Second, srv.Connected, "first client installed")
	firstID := srv.Stats().ConnectionID

	second := dialRaw(t, srv)
	requireClosedByServer(t, second)
	testutil.Eventually(t, 5*time.Second, func() bool { return srv.Stats().Rejected == 1 }, "rejection counted")

	stats := srv.Stats()
	if !stats.Connected || stats.ConnectionID != firstID {
		t.Fatalf("first connection disturbed: %+v", stats)
	}

	// The first client still works in both directions.
	alert, _ := protocol.Encode(&protocol.Alert{Text: "still here"})
	srv.Post(alert)
	got, err := protocol.ReadFrame(first, 0)
	if err != nil {
		t.Fatalf("ReadFrame on first client: %v", err)
	}
	if !bytes.Equal(got, alert) {
		t.Fatalf("first client got %x, want %x", got, alert)
	}
	query, _ := protocol.Encode(&protocol.BundleQuery{})
	protocol.WriteFrame(first, query)
	if got := popInbound(t, srv); !bytes.Equal(got, query) {
		t.Fatalf("inbound = %x, want %x", got, query)
	}
}

func TestPostWithoutClientIsDropped(t *testing.T) {
	srv := startServer(t, nil)
	srv.Post([]byte{0x80})
	if got := srv.Stats().Undeliverable; got != 1 {
		t.Fatalf("Undeliverable = %d, want 1", got)
	}
}

func TestPostPreservesOrder(t *testing.T) {
	srv := startServer(t, nil)
	conn := dial(t, srv)
	testutil.Eventually(t, 5*time.Second, srv.Connected, "client installed")

	var want [][]byte
	for i := range 5 {
		body, _ := protocol.Encode(&protocol.BundleDelivered{BundleID: uint64(i)})
		want = append(want, body)
		srv.Post(body)
	}
	for i := range want {
		got, err := protocol.ReadFrame(conn, 0)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if !bytes.Equal(got, want[i]) {
			t.Fatalf("frame %d = %x, want %x", i, got, want[i])
		}
	}
	testutil.Eventually(t, 5*time.Second, func() bool { return srv.Stats().Sent == 5 }, "sent count")
}

func TestDisconnectFreesSlot(t *testing.T) {
	srv := startServer(t, nil)
	conn := dial(t, srv)
	testutil.Eventually(t, 5*time.Second, srv.Connected, "client installed")

	conn.Close()
	testutil.Eventually(t, 5*time.Second, func() bool { return !srv.Connected() }, "slot released")

	// Nothing is replayed to the next client.
	srv.Post([]byte{0x81, 0x01})
	next := dial(t, srv)
	testutil.Eventually(t, 5*time.Second, srv.Connected, "second client installed")
	fresh, _ := protocol.Encode(&protocol.LinkAvailable{LinkID: "tcp-1"})
	srv.Post(fresh)
	got, err := protocol.ReadFrame(next, 0)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, fresh) {
		t.Fatalf("second client got %x, want %x", got, fresh)
	}
}

func TestOversizeFrameClosesConnection(t *testing.T) {
	srv := startServer(t, func(c *Config) { c.MaxFrameLength = 16 })
	conn := dial(t, srv)
	protocol.WriteFrame(conn, make([]byte, 100))

	requireClosedByServer(t, conn)
	testutil.Eventually(t, 5*time.Second, func() bool { return !srv.Connected() }, "slot released")
	if srv.inbound.Len() != 0 {
		t.Fatal("oversize frame reached the inbound queue")
	}
}

func TestHandshakeTimeout(t *testing.T) {
	srv := startServer(t, func(c *Config) { c.HandshakeTimeout = 50 * time.Millisecond })
	conn := dialRaw(t, srv)
	requireClosedByServer(t, conn)
	testutil.Eventually(t, 5*time.Second, func() bool { return !srv.Connected() }, "slot released")
}

func TestStopClosesClient(t *testing.T) {
	srv := startServer(t, nil)
	conn := dial(t, srv)
	testutil.Eventually(t, 5*time.Second, srv.Connected, "client installed")

	if !srv.Stop() {
		t.Fatal("Stop did not finish within the shutdown wait")
	}
	requireClosedByServer(t, conn)
	if srv.Connected() {
		t.Error("still connected after Stop")
	}
	if !srv.Stop() {
		t.Error("second Stop returned false")
	}
	if _, err := net.Dial("tcp", srv.Addr().String()); err == nil {
		t.Error("listener still accepting after Stop")
	}
}

func TestStartTwice(t *testing.T) {
	srv := startServer(t, nil)
	if err := srv.Start(context.Background()); err == nil {
		t.Fatal("second Start succeeded")
	}
}

func occupyPort(t *testing.T) (net.Listener, int) {
	t.Helper()
	occupant, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { occupant.Close() })
	_, portText, _ := net.SplitHostPort(occupant.Addr().String())
	port, _ := strconv.Atoi(portText)
	return occupant, port
}

func TestBindRetryExhausted(t *testing.T) {
	_, port := occupyPort(t)
	logger, _ := testutil.CaptureLogs()
	srv, err := New(Config{
		Port:              port,
		BindRetryInterval: 20 * time.Millisecond,
		BindRetryBudget:   150 * time.Millisecond,
		Inbound:           queue.New[[]byte](),
		Logger:            logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = srv.Start(context.Background())
	if !errors.Is(err, ErrBindExhausted) {
		t.Fatalf("Start = %v, want ErrBindExhausted", err)
	}
	if srv.Addr() != nil {
		t.Error("Addr is set after a failed Start")
	}
}

func TestBindRetryDefaultBudget(t *testing.T) {
	_, port := occupyPort(t)
	logger, _ := testutil.CaptureLogs()
	srv, err := New(Config{
		Port:              port,
		BindRetryInterval: 20 * time.Millisecond,
		Inbound:           queue.New[[]byte](),
		Logger:            logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	// With the default budget the server is still retrying when the
	// context runs out.
	if err := srv.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start = %v, want context.DeadlineExceeded", err)
	}
}

func TestBindSingleAttempt(t *testing.T) {
	_, port := occupyPort(t)
	logger, _ := testutil.CaptureLogs()
	srv, err := New(Config{
		Port:            port,
		BindRetryBudget: -1,
		Inbound:         queue.New[[]byte](),
		Logger:          logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Now()
	if err := srv.Start(context.Background()); !errors.Is(err, ErrBindExhausted) {
		t.Fatalf("Start = %v, want ErrBindExhausted", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("single attempt took %s", elapsed)
	}
}

func TestBindRetrySucceedsOnceFreed(t *testing.T) {
	occupant, port := occupyPort(t)
	logger, _ := testutil.CaptureLogs()
	srv, err := New(Config{
		Port:              port,
		BindRetryInterval: 20 * time.Millisecond,
		BindRetryBudget:   10 * time.Second,
		Inbound:           queue.New[[]byte](),
		Logger:            logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		occupant.Close()
	}()
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()
	if got := srv.Addr().String(); got != net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) {
		t.Errorf("Addr = %s", got)
	}
}

func TestBindOtherErrorNotRetried(t *testing.T) {
	logger, _ := testutil.CaptureLogs()
	srv, _ := New(Config{
		ListenAddress:   "192.0.2.1", // TEST-NET-1, never local
		BindRetryBudget: 10 * time.Second,
		Inbound:         queue.New[[]byte](),
		Logger:          logger,
	})
	start := time.Now()
	err := srv.Start(context.Background())
	if err == nil {
		srv.Stop()
		t.Skip("host has 192.0.2.1 configured")
	}
	if errors.Is(err, ErrBindExhausted) || time.Since(start) > 5*time.Second {
		t.Fatalf("non-EADDRINUSE failure was retried: %v", err)
	}
}
