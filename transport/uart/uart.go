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

// Package uart provides a UART transport for the frame stream
package uart

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"go.bug.st/serial"
)

// DefaultBaudRate matches the firmware's serial setup
const DefaultBaudRate = 9600

// port is the subset of serial.Port the transport uses
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Close() error
}

// Option configures a Transport before the port is opened
type Option func(*serial.Mode) error

// WithBaudRate sets the baud rate
func WithBaudRate(baud int) Option {
	return func(m *serial.Mode) error {
		if baud <= 0 {
			return fmt.Errorf("invalid baud rate %d", baud)
		}
		m.BaudRate = baud
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity serial.Parity) Option {
	return func(m *serial.Mode) error {
		m.Parity = parity
		return nil
	}
}

// WithStopBits sets the number of stop bits
func WithStopBits(stopBits serial.StopBits) Option {
	return func(m *serial.Mode) error {
		m.StopBits = stopBits
		return nil
	}
}

// DefaultMode returns 9600 8N1
func DefaultMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Transport implements the ucomms.Transport interface for UART communication
type Transport struct {
	port     port
	mode     *serial.Mode
	portName string
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens portName and discards anything already buffered on it
func New(portName string, opts ...Option) (*Transport, error) {
	mode := DefaultMode()
	for _, opt := range opts {
		if err := opt(mode); err != nil {
			return nil, err
		}
	}

	p, err := serial.Open(portName, mode)
	if err != nil {
		return nil, classify("open", portName, err)
	}

	t := newWithPort(p, portName, mode)
	if err := p.ResetInputBuffer(); err != nil {
		_ = p.Close()
		return nil, classify("reset", portName, err)
	}
	if err := t.SetTimeout(t.timeout); err != nil {
		_ = p.Close()
		return nil, err
	}
	return t, nil
}

func newWithPort(p port, portName string, mode *serial.Mode) *Transport {
	return &Transport{
		port:     p,
		mode:     mode,
		portName: portName,
		timeout:  100 * time.Millisecond,
	}
}

// Read reads available bytes. It returns 0, nil when the read timeout
// elapses without data.
func (t *Transport) Read(buf []byte) (int, error) {
	p, err := t.current()
	if err != nil {
		return 0, err
	}
	n, err := p.Read(buf)
	if err != nil {
		return n, classify("read", t.portName, err)
	}
	return n, nil
}

// Write writes all of data
func (t *Transport) Write(data []byte) (int, error) {
	p, err := t.current()
	if err != nil {
		return 0, err
	}
	written := 0
	for written < len(data) {
		n, err := p.Write(data[written:])
		written += n
		if err != nil {
			return written, classify("write", t.portName, err)
		}
		if n == 0 {
			return written, ucomms.NewTransportError("write", t.portName, ucomms.ErrTransportWrite, ucomms.ErrorTypeTransient)
		}
	}
	return written, nil
}

// SetTimeout sets the read timeout for the transport
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	if t.port == nil {
		return nil
	}
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return classify("set timeout", t.portName, err)
	}
	return nil
}

// Close closes the port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() ucomms.TransportType {
	return ucomms.TransportUART
}

// PortName returns the serial port path
func (t *Transport) PortName() string {
	return t.portName
}

// BaudRate returns the configured baud rate
func (t *Transport) BaudRate() int {
	if t.mode == nil {
		return 0
	}
	return t.mode.BaudRate
}

// ReadParams reads up to one frame per call with the configured timeout
func (t *Transport) ReadParams() ucomms.ReadParams {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ucomms.ReadParams{
		ChunkSize:   ucomms.Capacity,
		ReadTimeout: t.timeout,
	}
}

func (t *Transport) current() (port, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil, ucomms.ErrTransportClosed
	}
	return t.port, nil
}

// classify maps serial errors onto the transport error taxonomy
func classify(op, portName string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound, serial.InvalidSerialPort:
			return ucomms.NewTransportError(op, portName,
				fmt.Errorf("%w: %w", ucomms.ErrDeviceNotFound, err), ucomms.ErrorTypePermanent)
		case serial.PortClosed:
			return ucomms.NewTransportError(op, portName,
				fmt.Errorf("%w: %w", ucomms.ErrTransportClosed, err), ucomms.ErrorTypePermanent)
		case serial.PortBusy, serial.PermissionDenied,
			serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity,
			serial.InvalidStopBits, serial.InvalidTimeoutValue:
			return ucomms.NewTransportError(op, portName, err, ucomms.ErrorTypePermanent)
		default:
		}
	}

	sentinel := ucomms.ErrTransportRead
	if op == "write" {
		sentinel = ucomms.ErrTransportWrite
	}
	return ucomms.NewTransportError(op, portName, fmt.Errorf("%w: %w", sentinel, err), ucomms.ErrorTypeTransient)
}

// Ensure Transport implements ucomms.Transport
var _ ucomms.Transport = (*Transport)(nil)
