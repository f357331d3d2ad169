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

package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/polling"
)

// ProbePayload is the command sent by Full mode probes. Any frame received
// in reply confirms the device.
var ProbePayload = []byte("PING")

// ProbeResult is what a probe observed on an opened device
type ProbeResult struct {
	Reply     []byte
	Frames    int64
	Discarded int64
}

// Confirmed reports whether the device produced at least one valid frame
func (r ProbeResult) Confirmed() bool {
	return r.Frames > 0 || r.Reply != nil
}

// Probe listens on an opened transport for up to timeout. Safe mode only
// reads and returns as soon as one frame completes. Full mode also sends
// ProbePayload and waits for the reply. Passive mode does nothing.
func Probe(ctx context.Context, t ucomms.Transport, mode Mode, timeout time.Duration) (ProbeResult, error) {
	if mode == Passive {
		return ProbeResult{}, nil
	}

	session, err := polling.NewSession(t, nil, polling.WithHistorySize(0), polling.WithMaxReadErrors(3))
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to create probe session: %w", err)
	}
	seen := make(chan struct{}, 1)
	session.OnFrame = func(ucomms.FrameContext) {
		select {
		case seen <- struct{}{}:
		default:
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := session.Start(probeCtx); err != nil {
		return ProbeResult{}, fmt.Errorf("failed to start probe session: %w", err)
	}

	var result ProbeResult
	if mode == Full {
		reply, reqErr := session.Request(probeCtx, timeout, ProbePayload)
		if reqErr == nil {
			result.Reply = append([]byte{}, reply.Payload()...)
		}
	} else {
		select {
		case <-seen:
		case <-probeCtx.Done():
		}
	}
	_ = session.Stop()

	metrics := session.Monitor().Metrics()
	result.Frames = metrics.FramesCompleted
	result.Discarded = metrics.BytesDiscarded
	return result, nil
}
