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
	"fmt"

	"github.com/ZaparooProject/go-ucomms/internal/frame"
)

// EncodeFrame wraps payload as START LENGTH PAYLOAD STOP.
//
// Payloads holding a control byte value are rejected because the receiving
// parser would treat that byte as framing; the protocol has no escaping.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("%w: payload is %d bytes, max %d", ErrBufferOverflow, len(payload), MaxPayloadLength)
	}
	for i, b := range payload {
		if frame.IsControl(b) {
			return nil, fmt.Errorf("%w: 0x%02X at offset %d", ErrControlByteInPayload, b, i)
		}
	}

	out := make([]byte, 0, len(payload)+frame.Overhead)
	out = append(out, StartByte, byte(len(payload)))
	out = append(out, payload...)
	out = append(out, StopByte)
	return out, nil
}

// AbortSequence returns the single-byte sequence that cancels a frame in progress
func AbortSequence() []byte {
	return []byte{EscByte}
}
