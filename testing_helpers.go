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
	"bytes"
	"sync"
	"time"
)

// MockTransport replays scripted read chunks and records writes.
// Once the script is exhausted Read reports a timeout (0, nil).
type MockTransport struct {
	readErr   error
	writeErr  error
	chunks    [][]byte
	written   bytes.Buffer
	timeout   time.Duration
	reads     int
	mu        sync.Mutex
	closed    bool
	connected bool
}

// NewMockTransport creates a connected mock transport with the given read chunks
func NewMockTransport(chunks ...[]byte) *MockTransport {
	m := &MockTransport{connected: true}
	for _, c := range chunks {
		m.chunks = append(m.chunks, append([]byte(nil), c...))
	}
	return m
}

// QueueRead appends a chunk to be returned by a later Read
func (m *MockTransport) QueueRead(chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, append([]byte(nil), chunk...))
}

// SetReadError makes the next Read calls fail with err (nil clears it)
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes Write calls fail with err (nil clears it)
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Read returns the next scripted chunk, splitting it if buf is too small
func (m *MockTransport) Read(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++

	if m.closed {
		return 0, ErrTransportClosed
	}
	if m.readErr != nil {
		return 0, m.readErr
	}
	if len(m.chunks) == 0 {
		return 0, nil
	}

	n := copy(buf, m.chunks[0])
	if n < len(m.chunks[0]) {
		m.chunks[0] = m.chunks[0][n:]
	} else {
		m.chunks = m.chunks[1:]
	}
	return n, nil
}

// Write records data
func (m *MockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.written.Write(data)
}

// Written returns a copy of everything written so far
func (m *MockTransport) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written.Bytes()...)
}

// Pending reports whether scripted chunks remain
func (m *MockTransport) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks) > 0
}

// ReadCalls returns the number of Read calls
func (m *MockTransport) ReadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// SetTimeout records the timeout
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Close marks the transport as closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.connected = false
	return nil
}

// IsConnected returns true until Close is called
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// BlockingMockTransport is a mock transport whose Read blocks until bytes are
// pushed, the read timeout expires or the transport is closed.
// This is used for testing idle timeouts and context cancellation.
type BlockingMockTransport struct {
	dataChan chan []byte
	closeCh  chan struct{}
	pending  []byte
	timeout  time.Duration
	mu       sync.Mutex
	closed   bool
}

// NewBlockingMockTransport creates a new blocking mock transport
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{
		dataChan: make(chan []byte, 16),
		closeCh:  make(chan struct{}),
		timeout:  5 * time.Second, // Default timeout
	}
}

// Push makes data available to a blocked or future Read
func (m *BlockingMockTransport) Push(data []byte) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	m.dataChan <- append([]byte(nil), data...)
}

// Read blocks until data is pushed, the timeout expires or the transport is closed
func (m *BlockingMockTransport) Read(buf []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrTransportClosed
	}
	if len(m.pending) > 0 {
		n := copy(buf, m.pending)
		m.pending = m.pending[n:]
		m.mu.Unlock()
		return n, nil
	}
	timeout := m.timeout
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-m.dataChan:
		n := copy(buf, data)
		if n < len(data) {
			m.mu.Lock()
			m.pending = append(m.pending, data[n:]...)
			m.mu.Unlock()
		}
		return n, nil
	case <-timer.C:
		return 0, nil
	case <-m.closeCh:
		return 0, ErrTransportClosed
	}
}

// Write discards data
func (m *BlockingMockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	return len(data), nil
}

// Close unblocks all operations and marks transport as closed
func (m *BlockingMockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closeCh)
	}
	return nil
}

// SetTimeout configures the timeout for blocking reads
func (m *BlockingMockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// IsConnected returns true until Close is called
func (m *BlockingMockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*BlockingMockTransport) Type() TransportType {
	return TransportMock
}
