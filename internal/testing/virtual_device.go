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

package testing

import (
	"sync"
	"time"

	"github.com/ZaparooProject/go-ucomms"
)

// VirtualDevice plays the microcontroller end of a link. Frames the host
// writes are parsed with ucomms.Process and passed to Handler; any reply is
// queued for the host to read.
type VirtualDevice struct {
	// Handler returns the reply payload for a command, or nil for no reply.
	// It runs with the device locked.
	Handler  func(cmd ucomms.Command) []byte
	outbox   []byte
	received [][]byte
	errs     []error
	frame    ucomms.FrameContext
	// Noise is sent ahead of every reply
	Noise   []byte
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// NewVirtualDevice creates a device that echoes every command as ACK:<verb>
func NewVirtualDevice() *VirtualDevice {
	return &VirtualDevice{
		Handler: func(cmd ucomms.Command) []byte {
			return append([]byte("ACK:"), cmd.Verb...)
		},
		timeout: 10 * time.Millisecond,
	}
}

// Emit queues an unsolicited frame
func (d *VirtualDevice) Emit(payload []byte) {
	d.Inject(BuildFrame(payload))
}

// Inject queues raw bytes for the host
func (d *VirtualDevice) Inject(raw []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outbox = append(d.outbox, raw...)
}

// Received returns the payloads of every frame the host sent
func (d *VirtualDevice) Received() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.received))
	copy(out, d.received)
	return out
}

// Errors returns the parse errors seen on the host-to-device direction
func (d *VirtualDevice) Errors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.errs...)
}

// Read hands out queued bytes and never blocks
func (d *VirtualDevice) Read(buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ucomms.ErrTransportClosed
	}
	n := copy(buf, d.outbox)
	d.outbox = d.outbox[n:]
	return n, nil
}

// Write parses host bytes exactly as the firmware would
func (d *VirtualDevice) Write(data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ucomms.ErrTransportClosed
	}

	var replies [][]byte
	interp := ucomms.InterpreterFunc(func(f ucomms.FrameContext) error {
		payload := append([]byte(nil), f.Payload()...)
		d.received = append(d.received, payload)
		if d.Handler != nil {
			if reply := d.Handler(ucomms.ParseCommand(payload)); reply != nil {
				replies = append(replies, reply)
			}
		}
		return nil
	})
	for _, b := range data {
		if err := ucomms.Process(&d.frame, b, interp); err != nil {
			d.errs = append(d.errs, err)
			d.frame.Reset()
		}
	}
	for _, reply := range replies {
		d.outbox = append(d.outbox, d.Noise...)
		d.outbox = append(d.outbox, BuildFrame(reply)...)
	}
	return len(data), nil
}

func (d *VirtualDevice) SetTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeout = timeout
	return nil
}

func (d *VirtualDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *VirtualDevice) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed
}

func (*VirtualDevice) Type() ucomms.TransportType {
	return ucomms.TransportMock
}

// ReadParams paces the non-blocking Read
func (*VirtualDevice) ReadParams() ucomms.ReadParams {
	return ucomms.ReadParams{
		ChunkSize:      ucomms.Capacity,
		EmptyReadDelay: time.Millisecond,
	}
}

var _ ucomms.Transport = (*VirtualDevice)(nil)
