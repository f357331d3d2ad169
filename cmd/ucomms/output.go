// go-ucomms
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ucomms.
//
// go-ucomms is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ucomms is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ucomms; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/detection"
	"github.com/ZaparooProject/go-ucomms/internal/scenario"
	"github.com/ZaparooProject/go-ucomms/polling"
	"github.com/charmbracelet/lipgloss"
)

var (
	frameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	abortStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Output handles consistent formatting of messages
type Output struct {
	w io.Writer
}

// NewOutput creates a new output handler
func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// Frame prints one completed frame
func (o *Output) Frame(frame ucomms.FrameContext, at time.Time) {
	payload := frame.Payload()
	o.printf("%s %s %s %s\n",
		dimStyle.Render(at.Format("15:04:05.000")),
		frameStyle.Render("FRAME"),
		fmt.Sprintf("%2d", len(payload)),
		formatPayload(payload))
}

// Error prints a protocol, interpreter or transport error
func (o *Output) Error(err error) {
	label := "ERROR"
	if kind := ucomms.GetErrorKind(err); kind != ucomms.KindUnknown {
		label = kind.String()
	}
	o.printf("%s %s\n", errorStyle.Render(label), err)
}

// Abort prints a discarded partial frame
func (o *Output) Abort(reason polling.AbortReason) {
	o.printf("%s %s\n", abortStyle.Render("ABORT"), reason)
}

// Sent prints an outgoing frame
func (o *Output) Sent(payload []byte) {
	o.printf("%s %s\n", dimStyle.Render("SENT "), formatPayload(payload))
}

// Metrics prints a monitor summary
func (o *Output) Metrics(m polling.Metrics) {
	o.printf("%s\n", headingStyle.Render("Summary"))
	o.printf("  bytes read       %d\n", m.BytesRead)
	o.printf("  bytes discarded  %d\n", m.BytesDiscarded)
	o.printf("  frames completed %d\n", m.FramesCompleted)
	o.printf("  frames aborted   %d\n", m.FramesAborted)
	o.printf("  protocol errors  %d\n", m.ProtocolErrors)
	if m.InterpreterErrors > 0 {
		o.printf("  handler errors   %d\n", m.InterpreterErrors)
	}
	if m.ReadErrors > 0 {
		o.printf("  read errors      %d\n", m.ReadErrors)
	}
}

// Devices prints detection results
func (o *Output) Devices(devices []detection.DeviceInfo) {
	for _, d := range devices {
		o.printf("%-6s %-28s %-7s %s\n", d.Transport, d.Path, d.Confidence, d.Name)
	}
}

// DeviceChange prints a device that appeared or disappeared
func (o *Output) DeviceChange(d detection.DeviceInfo, added bool) {
	if added {
		o.printf("%s %s (%s)\n", frameStyle.Render("+"), d, d.Name)
		return
	}
	o.printf("%s %s\n", errorStyle.Render("-"), d)
}

// Scenario prints one replay result
func (o *Output) Scenario(r scenario.Result) {
	if r.Passed() {
		o.printf("%s %s\n", frameStyle.Render("PASS"), r.Name)
		return
	}
	o.printf("%s %s\n", errorStyle.Render("FAIL"), r.Name)
	for _, m := range r.Mismatches {
		o.printf("     %s\n", m)
	}
}

// formatPayload shows printable payloads as text and anything else as hex
func formatPayload(payload []byte) string {
	for _, b := range payload {
		if b < 0x20 || b > 0x7E {
			return fmt.Sprintf("% X", payload)
		}
	}
	return fmt.Sprintf("%q", string(payload))
}

// parsePayload accepts text, or hex when asHex is set
func parsePayload(s string, asHex bool) ([]byte, error) {
	if !asHex {
		return []byte(s), nil
	}
	return parseHex(s)
}

func parseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "0x", "", "0X", "", ",", "").Replace(s)
	out, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return out, nil
}
