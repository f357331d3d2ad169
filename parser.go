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

import "fmt"

// Process advances ctx by one input byte.
//
// START and ESC reset the context from any state. STOP closes the frame when
// the declared length has been received, writes the terminator and calls
// interp with a copy of the completed context before returning. Every other
// value is the LENGTH byte or a payload byte depending on the state.
//
// Control bytes are dispatched by value wherever they appear, so a payload
// cannot carry 0x02, 0x03 or 0x10 as data.
//
// On a protocol error ctx is left unchanged; an interpreter error leaves the
// frame complete. interp may be nil.
//
// Once a frame is complete only START and ESC are accepted. A further data
// byte runs past the declared length and reports ErrBufferOverflow; a second
// STOP reports ErrLengthMismatch, since the declared length is already
// terminated.
func Process(ctx *FrameContext, b byte, interp Interpreter) error {
	if ctx == nil {
		return newFrameError("process", b, StateIdle, ErrInvalidContext)
	}

	switch b {
	case StartByte:
		ctx.Reset()
		ctx.Flags |= FlagStarted
		return nil

	case EscByte:
		ctx.Reset()
		return nil

	case StopByte:
		return processStop(ctx, interp)

	default:
		return processData(ctx, b)
	}
}

func processStop(ctx *FrameContext, interp Interpreter) error {
	state := ctx.State()
	switch {
	case !ctx.Has(FlagStarted):
		return newFrameError("stop", StopByte, state, ErrMissingStart)
	case ctx.Has(FlagStopped):
		return newFrameError("stop", StopByte, state,
			fmt.Errorf("%w: frame of %d bytes already terminated", ErrLengthMismatch, ctx.AccumulatedLength))
	case !ctx.Has(FlagLengthKnown):
		return newFrameError("stop", StopByte, state, ErrNotReady)
	case ctx.AccumulatedLength != ctx.DeclaredLength:
		return newFrameError("stop", StopByte, state,
			fmt.Errorf("%w: declared %d, received %d", ErrLengthMismatch, ctx.DeclaredLength, ctx.AccumulatedLength))
	case ctx.AccumulatedLength > MaxPayloadLength:
		return newFrameError("stop", StopByte, state, ErrBufferOverflow)
	}

	ctx.Flags |= FlagStopped
	ctx.Buffer[ctx.AccumulatedLength] = Terminator
	debugf("frame complete: %d bytes %q", ctx.AccumulatedLength, ctx.payload())

	if interp == nil {
		return nil
	}
	if err := interp.Interpret(*ctx); err != nil {
		return newFrameError("interpret", StopByte, StateFrameComplete, fmt.Errorf("%w: %w", ErrInterpreter, err))
	}
	return nil
}

func processData(ctx *FrameContext, b byte) error {
	state := ctx.State()
	switch state {
	case StateAwaitingLength:
		if b > MaxPayloadLength {
			return newFrameError("length", b, state,
				fmt.Errorf("%w: declared %d, max %d", ErrBufferOverflow, b, MaxPayloadLength))
		}
		ctx.DeclaredLength = b
		ctx.Flags |= FlagLengthKnown
		return nil

	case StateAccumulatingPayload:
		if ctx.AccumulatedLength >= MaxPayloadLength {
			return newFrameError("payload", b, state,
				fmt.Errorf("%w: buffer full at %d bytes", ErrBufferOverflow, ctx.AccumulatedLength))
		}
		if ctx.AccumulatedLength >= ctx.DeclaredLength {
			return newFrameError("payload", b, state,
				fmt.Errorf("%w: payload exceeds declared length %d", ErrBufferOverflow, ctx.DeclaredLength))
		}
		ctx.Buffer[ctx.AccumulatedLength] = b
		ctx.AccumulatedLength++
		return nil

	case StateFrameComplete:
		return newFrameError("data", b, state,
			fmt.Errorf("%w: byte after STOP of a %d byte frame", ErrBufferOverflow, ctx.DeclaredLength))

	default:
		return newFrameError("data", b, state, ErrMissingStart)
	}
}

// ProcessBytes feeds data to Process one byte at a time and stops at the
// first error. It returns how many bytes were consumed, including the
// failing one.
func ProcessBytes(ctx *FrameContext, data []byte, interp Interpreter) (int, error) {
	for i, b := range data {
		if err := Process(ctx, b, interp); err != nil {
			return i + 1, err
		}
	}
	return len(data), nil
}
