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
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-ucomms/internal/frame"
)

// Protocol constants re-exported from the wire definition
const (
	StartByte        = frame.StartByte
	StopByte         = frame.StopByte
	EscByte          = frame.EscByte
	Capacity         = frame.Capacity
	MaxPayloadLength = frame.MaxPayloadLength
	Terminator       = frame.Terminator
)

// Flags records which protocol milestones the current frame has reached
type Flags uint8

const (
	// FlagStarted is set by a START byte and is always the first flag set.
	FlagStarted Flags = 1 << iota
	// FlagLengthKnown is set once the LENGTH byte has been accepted.
	FlagLengthKnown
	// FlagStopped is set by a STOP byte that closed the frame.
	FlagStopped
)

// String returns the set flags joined by "|"
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f&FlagStarted != 0 {
		parts = append(parts, "started")
	}
	if f&FlagLengthKnown != 0 {
		parts = append(parts, "length")
	}
	if f&FlagStopped != 0 {
		parts = append(parts, "stopped")
	}
	return strings.Join(parts, "|")
}

// State is the parser state derived from a context's flags
type State int

const (
	// StateIdle means no frame is in progress.
	StateIdle State = iota
	// StateAwaitingLength means START was seen and the LENGTH byte is next.
	StateAwaitingLength
	// StateAccumulatingPayload means payload bytes are being collected.
	StateAccumulatingPayload
	// StateFrameComplete means a STOP closed the frame; it is held until the next START or ESC.
	StateFrameComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLength:
		return "awaiting-length"
	case StateAccumulatingPayload:
		return "accumulating-payload"
	case StateFrameComplete:
		return "frame-complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FrameContext is the complete parser state for one byte stream.
//
// The zero value is the idle state and is ready to use. A FrameContext must
// be owned by a single goroutine; nothing in this package synchronizes access.
type FrameContext struct {
	// Buffer holds the payload of the frame being assembled, followed by a
	// terminator once the frame completes.
	Buffer [Capacity]byte
	// Flags records the milestones reached by the current frame.
	Flags Flags
	// DeclaredLength is the LENGTH byte. Only meaningful with FlagLengthKnown.
	DeclaredLength uint8
	// AccumulatedLength counts the payload bytes received so far.
	AccumulatedLength uint8
}

// NewFrameContext returns an idle context
func NewFrameContext() *FrameContext {
	return &FrameContext{}
}

// Reset discards the buffer and all flags
func (c *FrameContext) Reset() {
	*c = FrameContext{}
}

// Has reports whether every flag in f is set
func (c *FrameContext) Has(f Flags) bool {
	return c.Flags&f == f
}

// State derives the parser state from the flags
func (c *FrameContext) State() State {
	switch {
	case c.Flags&FlagStopped != 0:
		return StateFrameComplete
	case c.Flags&FlagLengthKnown != 0:
		return StateAccumulatingPayload
	case c.Flags&FlagStarted != 0:
		return StateAwaitingLength
	default:
		return StateIdle
	}
}

// Payload returns a copy of the payload bytes received so far
func (c *FrameContext) Payload() []byte {
	view := c.payload()
	out := make([]byte, len(view))
	copy(out, view)
	return out
}

// payload is Buffer[:AccumulatedLength], clamped to the buffer for contexts
// that were populated by hand
func (c *FrameContext) payload() []byte {
	n := int(c.AccumulatedLength)
	if n > Capacity {
		n = Capacity
	}
	return c.Buffer[:n]
}

// String renders the context for logs
func (c *FrameContext) String() string {
	return fmt.Sprintf("state=%s flags=%s declared=%d accumulated=%d payload=%q",
		c.State(), c.Flags, c.DeclaredLength, c.AccumulatedLength, c.payload())
}

// Reset reinitializes ctx to the idle state. It fails only when ctx is nil.
func Reset(ctx *FrameContext) error {
	if ctx == nil {
		return newFrameError("reset", 0, StateIdle, ErrInvalidContext)
	}
	ctx.Reset()
	return nil
}

// Equal reports whether two contexts are identical, comparing flags, both
// lengths and the whole buffer bytewise. Bytes beyond the payload count, so
// two contexts holding the same payload with different stale bytes are not
// equal. Two nil contexts are equal.
func Equal(a, b *FrameContext) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Flags != b.Flags ||
		a.DeclaredLength != b.DeclaredLength ||
		a.AccumulatedLength != b.AccumulatedLength {
		return false
	}
	return a.Buffer == b.Buffer
}

// PayloadEqual is the logical variant of Equal: it compares flags, lengths
// and only Buffer[:AccumulatedLength].
func PayloadEqual(a, b *FrameContext) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Flags != b.Flags ||
		a.DeclaredLength != b.DeclaredLength ||
		a.AccumulatedLength != b.AccumulatedLength {
		return false
	}
	return bytes.Equal(a.payload(), b.payload())
}
