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

import "time"

// ReadParams tunes how a reader loop pulls bytes from a transport
type ReadParams struct {
	// ChunkSize is the read buffer size handed to Transport.Read
	ChunkSize int
	// ReadTimeout is applied with SetTimeout before the loop starts
	ReadTimeout time.Duration
	// EmptyReadDelay is slept after a read returned no data, for transports
	// whose Read does not block
	EmptyReadDelay time.Duration
}

// ReadTuner lets a transport provide its own read parameters
type ReadTuner interface {
	ReadParams() ReadParams
}

// ReadParamsFor returns the read parameters for t
func ReadParamsFor(t Transport) ReadParams {
	if tuner, ok := t.(ReadTuner); ok {
		return tuner.ReadParams()
	}

	switch t.Type() {
	case TransportUART:
		// Blocking reads with a short timeout so cancellation stays responsive
		return ReadParams{
			ChunkSize:   Capacity,
			ReadTimeout: 100 * time.Millisecond,
		}
	case TransportI2C:
		// I2C reads return immediately; pace the bus
		return ReadParams{
			ChunkSize:      Capacity / 2,
			ReadTimeout:    50 * time.Millisecond,
			EmptyReadDelay: 5 * time.Millisecond,
		}
	case TransportMock:
		return ReadParams{
			ChunkSize:      Capacity,
			ReadTimeout:    10 * time.Millisecond,
			EmptyReadDelay: time.Millisecond,
		}
	default:
		return ReadParams{
			ChunkSize:      Capacity,
			ReadTimeout:    250 * time.Millisecond,
			EmptyReadDelay: 10 * time.Millisecond,
		}
	}
}
