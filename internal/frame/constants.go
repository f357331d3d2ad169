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

// Package frame provides the wire constants of the uComms framing protocol
package frame

// Control bytes. They are matched by value at every position in the stream,
// including inside the declared payload window.
const (
	StartByte = 0x02 // STX, begins a frame and resets the parser
	StopByte  = 0x03 // ETX, closes a frame whose length checks out
	EscByte   = 0x10 // DLE, aborts the frame in progress
)

// Buffer layout
const (
	Capacity         = 64           // Fixed context buffer size
	MaxPayloadLength = Capacity - 2 // Largest LENGTH byte accepted
	Terminator       = 0x00         // Written after the payload on STOP
)

// Overhead is the number of framing bytes around a payload (START, LENGTH, STOP)
const Overhead = 3

// IsControl reports whether b is one of the protocol control bytes.
func IsControl(b byte) bool {
	switch b {
	case StartByte, StopByte, EscByte:
		return true
	default:
		return false
	}
}
