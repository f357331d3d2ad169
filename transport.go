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

package ucomms

import (
	"context"
	"fmt"
	"time"
)

// Transport is the Byte Source side of the protocol: it owns the physical
// link and moves raw bytes. It can be implemented by UART or I2C backends.
type Transport interface {
	// Read reads available bytes into buf. It returns 0, nil when the read
	// timeout elapses without data.
	Read(buf []byte) (int, error)

	// Write writes raw bytes to the link
	Write(data []byte) (int, error)

	// SetTimeout sets the read timeout for the transport
	SetTimeout(timeout time.Duration) error

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportI2C represents I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// SendFrame encodes payload and writes the whole frame to t
func SendFrame(t Transport, payload []byte) error {
	data, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	return writeAll(t, data)
}

// SendAbort writes an ESC byte, cancelling whatever frame the peer is assembling
func SendAbort(t Transport) error {
	debugln("sending abort over", t.Type())
	return writeAll(t, AbortSequence())
}

func writeAll(t Transport, data []byte) error {
	for len(data) > 0 {
		n, err := t.Write(data)
		if err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
		if n == 0 {
			return NewTransportError("write", "", ErrTransportWrite, ErrorTypeTransient)
		}
		data = data[n:]
	}
	return nil
}

// TransportWithRetry wraps a Transport with retry capabilities for writes.
// Reads are passed through untouched: a stream reader must never replay bytes.
type TransportWithRetry struct {
	transport Transport
	config    *RetryConfig
}

// NewTransportWithRetry creates a new transport wrapper with retry logic
func NewTransportWithRetry(transport Transport, config *RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransportWithRetry{
		transport: transport,
		config:    config,
	}
}

// Read reads from the underlying transport
func (t *TransportWithRetry) Read(buf []byte) (int, error) {
	n, err := t.transport.Read(buf)
	if err != nil {
		return n, fmt.Errorf("failed to read from underlying transport: %w", err)
	}
	return n, nil
}

// Write writes data, retrying the remainder on retryable errors
func (t *TransportWithRetry) Write(data []byte) (int, error) {
	written := 0
	err := RetryWithConfig(context.Background(), t.config, func() error {
		n, err := t.transport.Write(data[written:])
		written += n
		if err != nil {
			return &TransportError{
				Op:        "Write",
				Err:       err,
				Type:      GetErrorType(err),
				Retryable: IsRetryable(err),
			}
		}
		if written < len(data) {
			return NewTransportError("Write", "", ErrTransportWrite, ErrorTypeTransient)
		}
		return nil
	})
	return written, err
}

// Close closes the transport connection
func (t *TransportWithRetry) Close() error {
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transport: %w", err)
	}
	return nil
}

// SetTimeout sets the read timeout for the transport
func (t *TransportWithRetry) SetTimeout(timeout time.Duration) error {
	if err := t.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on underlying transport: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *TransportWithRetry) IsConnected() bool {
	return t.transport.IsConnected()
}

// Type returns the transport type
func (t *TransportWithRetry) Type() TransportType {
	return t.transport.Type()
}

// ReadParams forwards read tuning to the underlying transport
func (t *TransportWithRetry) ReadParams() ReadParams {
	return ReadParamsFor(t.transport)
}

// SetRetryConfig updates the retry configuration
func (t *TransportWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}
