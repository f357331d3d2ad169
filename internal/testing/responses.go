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
	"encoding/hex"
	"strings"

	"github.com/ZaparooProject/go-ucomms"
)

// Sample payloads in the shape the Arduino sketches send
var (
	PayloadTemperature = []byte("TEMP:21.5")
	PayloadLEDOn       = []byte("LED:ON")
	PayloadAck         = []byte("ACK")
)

// BuildFrame wraps payload in START, LENGTH and STOP without validating it,
// so tests can build frames the encoder would reject.
func BuildFrame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+3)
	out = append(out, ucomms.StartByte, byte(len(payload)))
	out = append(out, payload...)
	return append(out, ucomms.StopByte)
}

// BuildFrames concatenates one frame per payload
func BuildFrames(payloads ...[]byte) []byte {
	var out []byte
	for _, p := range payloads {
		out = append(out, BuildFrame(p)...)
	}
	return out
}

// BuildAbortedFrame returns a frame cut off after keep payload bytes and
// terminated with ESC
func BuildAbortedFrame(payload []byte, keep int) []byte {
	if keep > len(payload) {
		keep = len(payload)
	}
	out := []byte{ucomms.StartByte, byte(len(payload))}
	out = append(out, payload[:keep]...)
	return append(out, ucomms.EscByte)
}

// BuildTruncatedFrame returns a frame whose STOP arrives keep bytes into
// the payload
func BuildTruncatedFrame(payload []byte, keep int) []byte {
	if keep > len(payload) {
		keep = len(payload)
	}
	out := []byte{ucomms.StartByte, byte(len(payload))}
	out = append(out, payload[:keep]...)
	return append(out, ucomms.StopByte)
}

// BuildNoise returns n bytes that never contain a control byte
func BuildNoise(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(0x20 + i%0x5F)
	}
	return out
}

// MustHex decodes a hex string, ignoring spaces. It panics on bad input.
func MustHex(s string) []byte {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return b
}
