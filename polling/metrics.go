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

package polling

import (
	"sync/atomic"
	"time"
)

// Metrics is a snapshot of monitor counters
type Metrics struct {
	LastFrameAt       time.Time // Completion time of the last frame
	BytesRead         int64     // Bytes returned by the transport
	BytesDiscarded    int64     // Bytes dropped while hunting for START
	FramesCompleted   int64     // Frames closed by a valid STOP
	FramesAborted     int64     // Partial frames dropped by ESC, restart or idle timeout
	ProtocolErrors    int64     // Malformed sequences reported by the parser
	InterpreterErrors int64     // Completed frames the interpreter rejected
	ReadErrors        int64     // Failed transport reads
}

// counters holds the live atomic values behind Metrics
type counters struct {
	bytesRead         int64
	bytesDiscarded    int64
	framesCompleted   int64
	framesAborted     int64
	protocolErrors    int64
	interpreterErrors int64
	readErrors        int64
	lastFrameAt       int64 // unix nanoseconds
}

func (c *counters) snapshot() Metrics {
	m := Metrics{
		BytesRead:         atomic.LoadInt64(&c.bytesRead),
		BytesDiscarded:    atomic.LoadInt64(&c.bytesDiscarded),
		FramesCompleted:   atomic.LoadInt64(&c.framesCompleted),
		FramesAborted:     atomic.LoadInt64(&c.framesAborted),
		ProtocolErrors:    atomic.LoadInt64(&c.protocolErrors),
		InterpreterErrors: atomic.LoadInt64(&c.interpreterErrors),
		ReadErrors:        atomic.LoadInt64(&c.readErrors),
	}
	if ns := atomic.LoadInt64(&c.lastFrameAt); ns != 0 {
		m.LastFrameAt = time.Unix(0, ns)
	}
	return m
}
