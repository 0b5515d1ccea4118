// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/extrouter/lib/config"
	"github.com/bureau-foundation/extrouter/lib/dtn/memory"
	"github.com/bureau-foundation/extrouter/lib/version"
	"github.com/bureau-foundation/extrouter/router"
	"github.com/bureau-foundation/extrouter/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath  string
		showVersion bool
		overrides   config.BridgeConfig
		localEID    string
		logLevel    string
		logFormat   string
	)

	flagSet := pflag.NewFlagSet("extrouter", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to YAML config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&overrides.ListenAddress, "listen-address", "", "address to bind the bridge listener")
	flagSet.IntVarP(&overrides.Port, "port", "p", 0, "port to bind the bridge listener")
	flagSet.DurationVar(&overrides.HelloInterval, "hello-interval", 0, "keepalive period")
	flagSet.DurationVar(&overrides.ShutdownGrace, "shutdown-grace", 0, "pause after the shutting-down alert")
	flagSet.DurationVar(&overrides.HandshakeTimeout, "handshake-timeout", 0, "bound on the wait for the client magic; negative waits forever")
	flagSet.StringVar(&localEID, "local-eid", "", "this node's endpoint ID")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flagSet.StringVar(&logFormat, "log-format", "", "json or text")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("extrouter %s\n", version.Full())
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("listen-address") {
		cfg.Bridge.ListenAddress = overrides.ListenAddress
	}
	if flagSet.Changed("port") {
		cfg.Bridge.Port = overrides.Port
	}
	if flagSet.Changed("hello-interval") {
		cfg.Bridge.HelloInterval = overrides.HelloInterval
	}
	if flagSet.Changed("shutdown-grace") {
		cfg.Bridge.ShutdownGrace = overrides.ShutdownGrace
	}
	if flagSet.Changed("handshake-timeout") {
		cfg.Bridge.HandshakeTimeout = overrides.HandshakeTimeout
	}
	if flagSet.Changed("local-eid") {
		cfg.Daemon.LocalEID = localEID
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return serve(cfg, logger)
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, options)), nil
	}
	return slog.New(slog.NewJSONHandler(w, options)), nil
}

// serve runs the daemon and bridge until a signal or a shutdown
// request arrives.
func serve(cfg *config.Config, logger *slog.Logger) error {
	daemon, err := memory.New(memory.Config{
		LocalEID: cfg.Daemon.LocalEID,
		Links:    daemonLinks(cfg.Daemon.Links),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	bridge, err := router.New(router.Config{
		ServerEID:      cfg.Daemon.LocalEID,
		HelloInterval:  cfg.Bridge.HelloInterval,
		ShutdownGrace:  cfg.Bridge.ShutdownGrace,
		ReportPageSize: cfg.Bridge.ReportPageSize,
		Server: server.Config{
			ListenAddress:     cfg.Bridge.ListenAddress,
			Port:              cfg.Bridge.Port,
			BindRetryInterval: cfg.Bridge.BindRetryInterval,
			BindRetryBudget:   cfg.Bridge.BindRetryBudget,
			ShutdownWait:      cfg.Bridge.ShutdownWait,
			HandshakeTimeout:  cfg.Bridge.HandshakeTimeout,
			MaxFrameLength:    cfg.Bridge.MaxFrameLength,
		},
		Bundles: daemon.Store(),
		Links:   daemon.Registry(),
		Actions: daemon,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	daemon.Attach(bridge, bridge)

	// The bridge and daemon run on their own context so that a signal
	// stops the process through Shutdown, which still gets the alert
	// out to the client.
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	signalCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	shutdownRequested := make(chan struct{})
	daemon.OnShutdown(func() {
		select {
		case <-shutdownRequested:
		default:
			close(shutdownRequested)
		}
	})

	daemonDone := make(chan error, 1)
	go func() { daemonDone <- daemon.Run(runCtx) }()

	if err := bridge.Start(runCtx); err != nil {
		return err
	}
	logger.Info("extrouter started",
		"version", version.Info(),
		"local_eid", cfg.Daemon.LocalEID,
		"links", len(cfg.Daemon.Links),
	)

	status := make(chan os.Signal, 1)
	signal.Notify(status, syscall.SIGUSR1)
	defer signal.Stop(status)

	for waiting := true; waiting; {
		select {
		case <-status:
			logger.Info("bridge state", "state", bridge.RoutingState())
		case <-shutdownRequested:
			logger.Info("shutdown requested by external router")
			waiting = false
		case <-signalCtx.Done():
			logger.Info("shutdown signal received")
			waiting = false
		}
	}

	if !bridge.Shutdown() {
		logger.Warn("bridge connection did not stop within the shutdown wait")
	}
	stopRun()
	if err := <-daemonDone; err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	logger.Info("extrouter stopped")
	return nil
}

func daemonLinks(links []config.LinkConfig) []memory.LinkConfig {
	result := make([]memory.LinkConfig, 0, len(links))
	for _, link := range links {
		nextHop := link.NextHop
		if nextHop == "" && link.RemoteAddress != "" {
			nextHop = net.JoinHostPort(link.RemoteAddress, strconv.Itoa(int(link.RemotePort)))
		}
		result = append(result, memory.LinkConfig{
			Name:             link.Name,
			ConvergenceLayer: link.ConvergenceLayer,
			RemoteEID:        link.RemoteEID,
			NextHop:          nextHop,
			RemoteAddress:    link.RemoteAddress,
			RemotePort:       link.RemotePort,
			Rate:             link.Rate,
			Open:             link.Open,
		})
	}
	return result
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `extrouter - bundle daemon with an external-router bridge

Runs an in-memory bundle daemon and listens for one external router
client. The client receives bundle and link events and sends back
routing requests.

Usage:
  extrouter [flags]

Examples:
  # Defaults: listen on 127.0.0.1:8001 with no links
  extrouter

  # Static links and bridge settings from a file
  extrouter --config /etc/extrouter.yaml

  # Override the port and log in text
  extrouter --config extrouter.yaml --port 9001 --log-format text

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
