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
	"time"
)

// ReceiverMode is the monitor's view of the byte stream
type ReceiverMode int32

const (
	// ModeHunting discards bytes until the next START
	ModeHunting ReceiverMode = iota
	// ModeInFrame means a START was accepted and the frame is being assembled
	ModeInFrame
)

func (m ReceiverMode) String() string {
	if m == ModeInFrame {
		return "in-frame"
	}
	return "hunting"
}

// AbortReason says why a partial frame was thrown away
type AbortReason int

const (
	// AbortEscape means the sender transmitted ESC
	AbortEscape AbortReason = iota
	// AbortRestart means a START arrived before the frame was closed
	AbortRestart
	// AbortIdle means no byte arrived within the idle timeout
	AbortIdle
)

func (r AbortReason) String() string {
	switch r {
	case AbortEscape:
		return "escape"
	case AbortRestart:
		return "restart"
	case AbortIdle:
		return "idle-timeout"
	default:
		return "unknown"
	}
}

// ReceiverState tracks where the monitor is between frames
type ReceiverState struct {
	LastByteAt     time.Time
	FrameStartedAt time.Time
	Mode           ReceiverMode
	// Discarded counts bytes dropped since the monitor last started hunting
	Discarded int
}

// TransitionToInFrame records an accepted START
func (rs *ReceiverState) TransitionToInFrame(now time.Time) {
	rs.Mode = ModeInFrame
	rs.FrameStartedAt = now
	rs.LastByteAt = now
	rs.Discarded = 0
}

// TransitionToHunting drops frame tracking until the next START
func (rs *ReceiverState) TransitionToHunting() {
	rs.Mode = ModeHunting
	rs.FrameStartedAt = time.Time{}
	rs.Discarded = 0
}

// Touch records byte activity
func (rs *ReceiverState) Touch(now time.Time) {
	rs.LastByteAt = now
}

// IdleExpired reports whether a frame in progress has been silent longer than timeout
func (rs *ReceiverState) IdleExpired(now time.Time, timeout time.Duration) bool {
	if rs.Mode != ModeInFrame || timeout <= 0 {
		return false
	}
	return now.Sub(rs.LastByteAt) > timeout
}
