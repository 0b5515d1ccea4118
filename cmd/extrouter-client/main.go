// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/extrouter/client"
	"github.com/bureau-foundation/extrouter/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		address     string
		timeout     time.Duration
		settle      time.Duration
		color       string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("extrouter-client", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVarP(&address, "address", "a", "127.0.0.1:8001", "bridge address")
	flagSet.DurationVar(&timeout, "timeout", 5*time.Second, "bound on connecting and on waiting for a reply")
	flagSet.DurationVar(&settle, "settle", 500*time.Millisecond, "quiet period that ends a multi-page bundle report")
	flagSet.StringVar(&color, "color", "auto", "style output: auto, always or never")
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
		fmt.Printf("extrouter-client %s\n", version.Info())
		return nil
	}
	if flagSet.NArg() == 0 {
		printHelp(flagSet)
		return fmt.Errorf("a command is required")
	}

	cmd, ok := findCommand(flagSet.Arg(0))
	if !ok {
		return fmt.Errorf("unknown command %q (see --help)", flagSet.Arg(0))
	}
	commandArgs := flagSet.Args()[1:]
	if err := cmd.checkArgs(commandArgs); err != nil {
		return err
	}

	styled, err := useColor(color, stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancelDial := context.WithTimeout(ctx, timeout)
	conn, err := client.Dial(dialCtx, address, client.Options{HandshakeTimeout: timeout})
	cancelDial()
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock a pending Receive when interrupted.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s := &session{
		client:  conn,
		printer: newPrinter(stdout, styled),
		timeout: timeout,
		settle:  settle,
	}
	err = cmd.run(ctx, s, commandArgs)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// useColor resolves the --color flag against the output terminal.
func useColor(mode string, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		file, ok := out.(interface{ Fd() uintptr })
		return ok && term.IsTerminal(int(file.Fd())), nil
	default:
		return false, fmt.Errorf("--color must be auto, always or never, got %q", mode)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	writeUsage(os.Stderr)
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

func writeUsage(w io.Writer) {
	fmt.Fprint(w, `extrouter-client - talk to an extrouter bridge

Usage:
  extrouter-client [flags] <command> [args...]

Commands:
`)
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-34s %s\n", cmd.usage, cmd.summary)
	}
	fmt.Fprint(w, `
Examples:
  # Print every event the bridge sends
  extrouter-client watch

  # Forward bundle 42 over link ltp-1
  extrouter-client --address 10.0.0.1:8001 transmit 42 ltp-1

  # Change a link's remote port
  extrouter-client reconfigure udp-1 remote_port=4557
`)
}
