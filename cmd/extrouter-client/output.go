// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/extrouter/lib/codec"
	"github.com/bureau-foundation/extrouter/protocol"
)

// printer writes one line per message: the message type, then the
// body in CBOR diagnostic notation.
type printer struct {
	out    io.Writer
	styled bool

	typeStyle  lipgloss.Style
	alertStyle lipgloss.Style
	errorStyle lipgloss.Style
}

func newPrinter(out io.Writer, styled bool) *printer {
	return &printer{
		out:        out,
		styled:     styled,
		typeStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		alertStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		errorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (p *printer) message(msg protocol.Message, raw []byte) {
	name := msg.Type().String()
	if p.styled {
		if msg.Type() == protocol.TypeAlert {
			name = p.alertStyle.Render(name)
		} else {
			name = p.typeStyle.Render(name)
		}
	}
	fmt.Fprintf(p.out, "%s %s\n", name, diagnose(raw))
}

func (p *printer) undecodable(raw []byte, err error) {
	label := "undecodable"
	if p.styled {
		label = p.errorStyle.Render(label)
	}
	fmt.Fprintf(p.out, "%s %s (%v)\n", label, diagnose(raw), err)
}

func diagnose(raw []byte) string {
	notation, err := codec.Diagnose(raw)
	if err != nil {
		return fmt.Sprintf("h'%x'", raw)
	}
	return notation
}
