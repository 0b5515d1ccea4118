// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/extrouter/client"
	"github.com/bureau-foundation/extrouter/protocol"
)

// session is what a command runs against.
type session struct {
	client  *client.Client
	printer *printer
	timeout time.Duration
	settle  time.Duration
}

type command struct {
	name    string
	usage   string
	summary string

	// minArgs and maxArgs bound the positional arguments; maxArgs < 0
	// means unbounded.
	minArgs int
	maxArgs int

	run func(ctx context.Context, s *session, args []string) error
}

var commands = []command{
	{
		name: "watch", usage: "watch", summary: "print every message until the bridge disconnects",
		run: runWatch,
	},
	{
		name: "links", usage: "links", summary: "query and print the link table",
		run: runLinks,
	},
	{
		name: "bundles", usage: "bundles", summary: "query and print the pending bundles",
		run: runBundles,
	},
	{
		name: "transmit", usage: "transmit <bundle-id> <link>", summary: "forward a bundle on a link",
		minArgs: 2, maxArgs: 2, run: runTransmit,
	},
	{
		name: "reconfigure", usage: "reconfigure <link> <key=value>...", summary: "change link parameters",
		minArgs: 2, maxArgs: -1, run: runReconfigure,
	},
	{
		name: "close-link", usage: "close-link <link>", summary: "close a link",
		minArgs: 1, maxArgs: 1, run: runCloseLink,
	},
	{
		name: "custody", usage: "custody <bundle-id>", summary: "take custody of a bundle",
		minArgs: 1, maxArgs: 1, run: runCustody,
	},
	{
		name: "delete", usage: "delete <bundle-id>...", summary: "delete bundles",
		minArgs: 1, maxArgs: -1, run: runDelete,
	},
	{
		name: "shutdown", usage: "shutdown", summary: "ask the daemon to shut down",
		run: runShutdown,
	},
}

func findCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func (c command) checkArgs(args []string) error {
	if len(args) < c.minArgs || (c.maxArgs >= 0 && len(args) > c.maxArgs) {
		return fmt.Errorf("usage: extrouter-client %s", c.usage)
	}
	return nil
}

func runWatch(ctx context.Context, s *session, _ []string) error {
	for {
		msg, raw, err := s.client.Receive()
		if err != nil {
			if raw != nil {
				s.printer.undecodable(raw, err)
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		s.printer.message(msg, raw)
	}
}

func runLinks(ctx context.Context, s *session, _ []string) error {
	if err := s.client.Send(&protocol.LinkQuery{}); err != nil {
		return err
	}
	s.client.SetReadDeadline(time.Now().Add(s.timeout))
	for {
		msg, raw, err := s.receive()
		if err != nil {
			return err
		}
		if msg.Type() == protocol.TypeLinkReport {
			s.printer.message(msg, raw)
			return nil
		}
	}
}

// runBundles prints bundle_report pages until none has arrived for the
// settle period.
func runBundles(ctx context.Context, s *session, _ []string) error {
	if err := s.client.Send(&protocol.BundleQuery{}); err != nil {
		return err
	}
	s.client.SetReadDeadline(time.Now().Add(s.timeout))
	pages := 0
	for {
		msg, raw, err := s.receive()
		if err != nil {
			if pages > 0 && errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			return err
		}
		if msg.Type() != protocol.TypeBundleReport {
			continue
		}
		s.printer.message(msg, raw)
		pages++
		s.client.SetReadDeadline(time.Now().Add(s.settle))
	}
}

func runTransmit(ctx context.Context, s *session, args []string) error {
	id, err := parseBundleID(args[0])
	if err != nil {
		return err
	}
	return s.client.Send(&protocol.TransmitBundle{BundleID: id, LinkID: args[1]})
}

func runReconfigure(ctx context.Context, s *session, args []string) error {
	parameters := make([]protocol.KeyValue, 0, len(args)-1)
	for _, arg := range args[1:] {
		parameter, err := parseParameter(arg)
		if err != nil {
			return err
		}
		parameters = append(parameters, parameter)
	}
	return s.client.Send(&protocol.LinkReconfigure{LinkID: args[0], Parameters: parameters})
}

func runCloseLink(ctx context.Context, s *session, args []string) error {
	return s.client.Send(&protocol.LinkClose{LinkID: args[0]})
}

func runCustody(ctx context.Context, s *session, args []string) error {
	id, err := parseBundleID(args[0])
	if err != nil {
		return err
	}
	return s.client.Send(&protocol.TakeCustody{BundleID: id})
}

func runDelete(ctx context.Context, s *session, args []string) error {
	ids := make([]uint64, 0, len(args))
	for _, arg := range args {
		id, err := parseBundleID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return s.client.Send(&protocol.DeleteBundle{BundleIDs: ids})
}

// runShutdown sends the request and waits for the bridge to confirm
// with its shutting-down alert.
func runShutdown(ctx context.Context, s *session, _ []string) error {
	if err := s.client.Send(&protocol.Shutdown{}); err != nil {
		return err
	}
	s.client.SetReadDeadline(time.Now().Add(s.timeout))
	for {
		msg, raw, err := s.receive()
		if err != nil {
			return err
		}
		if alert, ok := msg.(*protocol.Alert); ok && alert.Text == protocol.AlertShuttingDown {
			s.printer.message(msg, raw)
			return nil
		}
	}
}

// receive reads the next decodable event, printing and skipping any
// that fail to decode.
func (s *session) receive() (protocol.Message, []byte, error) {
	for {
		msg, raw, err := s.client.Receive()
		if err == nil {
			return msg, raw, nil
		}
		if raw == nil {
			if errors.Is(err, io.EOF) {
				return nil, nil, fmt.Errorf("bridge closed the connection")
			}
			return nil, nil, err
		}
		s.printer.undecodable(raw, err)
	}
}

func parseBundleID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bundle id %q is not an unsigned integer", arg)
	}
	return id, nil
}

// parseParameter turns key=value into a typed parameter: true and
// false are booleans, digits are unsigned, a leading minus is signed,
// and anything else is a string.
func parseParameter(arg string) (protocol.KeyValue, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return protocol.KeyValue{}, fmt.Errorf("parameter %q is not key=value", arg)
	}
	switch value {
	case "true":
		return protocol.BoolValue(key, true), nil
	case "false":
		return protocol.BoolValue(key, false), nil
	}
	if n, err := strconv.ParseUint(value, 10, 64); err == nil {
		return protocol.UintValue(key, n), nil
	}
	if strings.HasPrefix(value, "-") {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return protocol.IntValue(key, n), nil
		}
	}
	return protocol.StringValue(key, value), nil
}
