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

/*
Package ucomms implements the receiving side of a small framed serial
protocol used to carry text commands from a host to a microcontroller.

Every frame on the wire has the form

	START(0x02) LENGTH PAYLOAD... STOP(0x03)

where LENGTH is the payload length (0 to 62). An ESC byte (0x10) aborts the
frame in progress. The receiver keeps its whole state in a fixed-size
FrameContext and advances it one byte at a time with Process. When STOP closes
a frame whose received length matches LENGTH, the completed context is handed
to an Interpreter.

Basic Usage:

	var ctx ucomms.FrameContext
	router := ucomms.NewRouter()
	router.Handle("GET", func(cmd ucomms.Command) error {
	    fmt.Printf("get %s\n", cmd.Args)
	    return nil
	})

	for _, b := range incoming {
	    if err := ucomms.Process(&ctx, b, router); err != nil {
	        log.Printf("dropped byte: %v", err)
	    }
	}

Reading from a device:

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}
	defer transport.Close()

	monitor, err := polling.NewMonitor(transport, router)
	if err != nil {
	    log.Fatal(err)
	}
	monitor.OnFrame = func(ctx ucomms.FrameContext) {
	    fmt.Printf("frame %q\n", ctx.Payload())
	}
	if err := monitor.Run(ctx); err != nil {
	    log.Fatal(err)
	}

Sending:

	if err := ucomms.SendFrame(transport, []byte("SET:42")); err != nil {
	    log.Fatal(err)
	}

Error Handling:

Process reports every protocol violation as a *FrameError wrapping one of
the sentinel errors, and leaves the context untouched:

	if errors.Is(err, ucomms.ErrLengthMismatch) {
	    // frame was truncated
	}

The protocol has no byte stuffing. A payload byte equal to START, STOP or ESC
is interpreted as that control byte; EncodeFrame refuses such payloads.

Thread Safety:

A FrameContext belongs to one goroutine. Use one context per byte stream.
*/
package ucomms
