// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads extrouter configuration.
//
// Configuration comes from a single YAML file named by the --config
// flag or, failing that, the EXTROUTER_CONFIG environment variable.
// File values are layered over Default(); fields the file omits keep
// their defaults. With neither flag nor variable set, Default() is
// used as is. Command-line flags may then override individual fields
// before Validate is called.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/extrouter/lib/codec"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "EXTROUTER_CONFIG"

// Config is the full extrouter configuration.
type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
	Daemon DaemonConfig `yaml:"daemon"`
	Log    LogConfig    `yaml:"log"`
}

// BridgeConfig configures the external-router listener and event
// bridge.
type BridgeConfig struct {
	// ListenAddress is the IP or host name to bind.
	// Default: 127.0.0.1
	ListenAddress string `yaml:"listen_address"`

	// Port is the TCP port to bind.
	// Default: 8001
	Port int `yaml:"port"`

	// HelloInterval is the keepalive period.
	// Default: 30s
	HelloInterval time.Duration `yaml:"hello_interval"`

	// ShutdownGrace is how long the bridge waits after sending the
	// shutting-down alert before closing the connection.
	// Default: 100ms
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	// ShutdownWait bounds how long stopping waits for the active
	// connection to finish.
	// Default: 2s
	ShutdownWait time.Duration `yaml:"shutdown_wait"`

	// BindRetryInterval and BindRetryBudget control retrying a bind
	// that fails with "address in use". A negative budget binds once.
	// Default: 100ms, 10s
	BindRetryInterval time.Duration `yaml:"bind_retry_interval"`
	BindRetryBudget   time.Duration `yaml:"bind_retry_budget"`

	// HandshakeTimeout bounds the wait for the client magic. A
	// negative value waits forever.
	// Default: 5s
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// MaxFrameLength is the largest frame payload accepted from a
	// client.
	// Default: 64 MiB
	MaxFrameLength int `yaml:"max_frame_length"`

	// ReportPageSize is the number of bundles per bundle_report page.
	// Default: 10000
	ReportPageSize int `yaml:"report_page_size"`
}

// DaemonConfig configures the in-memory bundle daemon.
type DaemonConfig struct {
	// LocalEID is this node's endpoint ID, reported in hello
	// messages.
	// Default: ipn:1.0
	LocalEID string `yaml:"local_eid"`

	// Links is the static link table.
	Links []LinkConfig `yaml:"links"`
}

// LinkConfig describes one static link.
type LinkConfig struct {
	Name             string `yaml:"name"`
	ConvergenceLayer string `yaml:"convergence_layer"`
	RemoteEID        string `yaml:"remote_eid"`

	// NextHop defaults to RemoteAddress:RemotePort when empty.
	NextHop       string `yaml:"next_hop"`
	RemoteAddress string `yaml:"remote_address"`
	RemotePort    uint16 `yaml:"remote_port"`

	// Rate is the send rate limit in bits per second; zero means
	// unlimited. Only udp and ltpudp links have one.
	Rate uint64 `yaml:"rate"`

	// Open links start with an open contact; others start available.
	Open bool `yaml:"open"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is json or text.
	// Default: json
	Format string `yaml:"format"`
}

// ConvergenceLayers lists the link families the daemon can build.
var ConvergenceLayers = []string{"tcp", "udp", "ltpudp"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ListenAddress:     "127.0.0.1",
			Port:              8001,
			HelloInterval:     30 * time.Second,
			ShutdownGrace:     100 * time.Millisecond,
			ShutdownWait:      2 * time.Second,
			BindRetryInterval: 100 * time.Millisecond,
			BindRetryBudget:   10 * time.Second,
			HandshakeTimeout:  5 * time.Second,
			MaxFrameLength:    64 << 20,
			ReportPageSize:    10000,
		},
		Daemon: DaemonConfig{
			LocalEID: "ipn:1.0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load resolves the config file from flagPath, then from
// EXTROUTER_CONFIG, and loads it. With neither set it returns
// Default().
func Load(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a YAML file over Default().
// Unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default().
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Bridge.ListenAddress == "" {
		errs = append(errs, fmt.Errorf("bridge.listen_address is required"))
	}
	if c.Bridge.Port < 1 || c.Bridge.Port > 65535 {
		errs = append(errs, fmt.Errorf("bridge.port must be 1-65535, got %d", c.Bridge.Port))
	}
	for _, field := range []struct {
		name  string
		value time.Duration
	}{
		{"bridge.hello_interval", c.Bridge.HelloInterval},
		{"bridge.shutdown_wait", c.Bridge.ShutdownWait},
		{"bridge.bind_retry_interval", c.Bridge.BindRetryInterval},
	} {
		if field.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", field.name, field.value))
		}
	}
	if c.Bridge.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("bridge.shutdown_grace must not be negative, got %s", c.Bridge.ShutdownGrace))
	}
	if c.Bridge.MaxFrameLength <= 0 {
		errs = append(errs, fmt.Errorf("bridge.max_frame_length must be positive"))
	}
	if c.Bridge.ReportPageSize <= 0 || c.Bridge.ReportPageSize > codec.MaxArrayElements {
		errs = append(errs, fmt.Errorf("bridge.report_page_size must be 1-%d, got %d", codec.MaxArrayElements, c.Bridge.ReportPageSize))
	}

	if c.Daemon.LocalEID == "" {
		errs = append(errs, fmt.Errorf("daemon.local_eid is required"))
	}
	seen := make(map[string]bool)
	for i, link := range c.Daemon.Links {
		errs = append(errs, link.validate(i, seen)...)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func (l LinkConfig) validate(index int, seen map[string]bool) []error {
	var errs []error
	prefix := fmt.Sprintf("daemon.links[%d]", index)
	if l.Name == "" {
		errs = append(errs, fmt.Errorf("%s.name is required", prefix))
	} else if seen[l.Name] {
		errs = append(errs, fmt.Errorf("%s.name %q is a duplicate", prefix, l.Name))
	}
	seen[l.Name] = true

	known := false
	for _, layer := range ConvergenceLayers {
		if l.ConvergenceLayer == layer {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("%s.convergence_layer must be one of %v, got %q", prefix, ConvergenceLayers, l.ConvergenceLayer))
	}
	if l.RemoteAddress != "" && net.ParseIP(l.RemoteAddress) == nil {
		errs = append(errs, fmt.Errorf("%s.remote_address %q is not an IP address", prefix, l.RemoteAddress))
	}
	if l.RemoteAddress == "" && l.RemotePort != 0 {
		errs = append(errs, fmt.Errorf("%s.remote_port set without remote_address", prefix))
	}
	if l.Rate != 0 && l.ConvergenceLayer == "tcp" {
		errs = append(errs, fmt.Errorf("%s.rate is not supported by tcp links", prefix))
	}
	return errs
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
