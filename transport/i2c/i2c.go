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

// Package i2c provides an I2C transport for microcontrollers that expose the
// frame stream as an I2C target.
//
// Every read transaction starts with a count byte: the number of stream bytes
// that follow in the same transaction. A count of zero means the target has
// nothing buffered. Writes carry raw stream bytes.
package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/internal/transport"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the 7-bit target address used when none is given
	DefaultAddress = 0x24

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	// Most target-side I2C libraries buffer 32 bytes per transaction
	maxTransaction = 32
	maxReadChunk   = maxTransaction - 1

	pollInterval = time.Millisecond
	writeRetries = 2
)

// Transport implements the ucomms.Transport interface for I2C communication
type Transport struct {
	closer  i2c.BusCloser
	dev     *i2c.Dev
	busName string
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// New opens an I2C bus by name ("" for the first bus, "1" or "/dev/i2c-1")
// and addresses the target at addr
func New(busName string, addr uint16) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, ucomms.NewTransportError("open", busName,
			fmt.Errorf("%w: %w", ucomms.ErrDeviceNotFound, err), ucomms.ErrorTypePermanent)
	}

	_ = bus.SetSpeed(maxClockFreq) // Ignore error, continue with default speed

	t := NewWithBus(bus, addr)
	t.closer = bus
	t.busName = busName
	return t, nil
}

// NewWithBus creates a transport on an already opened bus. The bus is not
// closed by Close.
func NewWithBus(bus i2c.Bus, addr uint16) *Transport {
	if addr == 0 {
		addr = DefaultAddress
	}
	return &Transport{
		dev:     &i2c.Dev{Addr: addr, Bus: bus},
		busName: bus.String(),
		timeout: 50 * time.Millisecond,
	}
}

// Read polls the target until it reports buffered bytes or the read timeout
// elapses. A timeout returns 0, nil.
func (t *Transport) Read(buf []byte) (int, error) {
	return t.ReadContext(context.Background(), buf)
}

// ReadContext reads like Read but stops polling when ctx is done
func (t *Transport) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if len(buf) > maxReadChunk {
		buf = buf[:maxReadChunk]
	}

	dev, timeout, err := t.snapshot()
	if err != nil {
		return 0, err
	}

	rx := make([]byte, len(buf)+1)
	n, _, err := transport.Poll(ctx, timeout, pollInterval, func() (int, bool, error) {
		if err := dev.Tx(nil, rx); err != nil {
			return 0, false, ucomms.NewTransportError("read", t.busName,
				fmt.Errorf("%w: %w", ucomms.ErrTransportRead, err), ucomms.ErrorTypeTransient)
		}
		count := int(rx[0])
		if count == 0 {
			return 0, true, nil
		}
		if count > len(buf) {
			// The target cannot send more than was clocked out
			count = len(buf)
		}
		return copy(buf, rx[1:1+count]), false, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("i2c read cancelled: %w", err)
		}
		return 0, err
	}
	return n, nil
}

// Write sends data in transactions of at most 32 bytes. A NACKed transaction
// is retried.
func (t *Transport) Write(data []byte) (int, error) {
	dev, _, err := t.snapshot()
	if err != nil {
		return 0, err
	}

	written := 0
	for written < len(data) {
		end := written + maxTransaction
		if end > len(data) {
			end = len(data)
		}
		chunk := data[written:end]

		var lastErr error
		_, err := transport.WithRetry(context.Background(), transport.RetryConfig{
			Description: "write",
			Port:        t.busName,
			MaxRetries:  writeRetries,
			RetryDelay:  pollInterval,
		}, func() (struct{}, bool, error) {
			if txErr := dev.Tx(chunk, nil); txErr != nil {
				lastErr = txErr
				return struct{}{}, true, nil
			}
			return struct{}{}, false, nil
		})
		if err != nil {
			return written, fmt.Errorf("%w: %w", err, lastErr)
		}
		written = end
	}
	return written, nil
}

func (t *Transport) snapshot() (*i2c.Dev, time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.dev == nil {
		return nil, 0, ucomms.ErrTransportClosed
	}
	return t.dev, t.timeout, nil
}

// SetTimeout sets the read timeout for the transport
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close closes the bus if this transport opened it
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer != nil {
		if err := t.closer.Close(); err != nil {
			return fmt.Errorf("failed to close I2C bus %s: %w", t.busName, err)
		}
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil && !t.closed
}

// Type returns the transport type
func (*Transport) Type() ucomms.TransportType {
	return ucomms.TransportI2C
}

// ReadParams sizes reads to one bus transaction. Read already polls, so no
// extra delay is needed between empty reads.
func (t *Transport) ReadParams() ucomms.ReadParams {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ucomms.ReadParams{
		ChunkSize:   maxReadChunk,
		ReadTimeout: t.timeout,
	}
}

// Ensure Transport implements ucomms.TransportContext
var _ ucomms.TransportContext = (*Transport)(nil)
