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

package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/polling"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the live monitor until the user quits or ctx is done. It owns
// the monitor's callbacks and runs its read loop.
func Run(ctx context.Context, monitor *polling.Monitor, transport ucomms.TransportType) error {
	model := New(monitor, fmt.Sprintf("ucomms %s", transport))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	monitor.OnFrame = func(frame ucomms.FrameContext) {
		p.Send(FrameMsg{At: time.Now(), Frame: frame})
	}
	monitor.OnError = func(err error) {
		p.Send(ErrorMsg{At: time.Now(), Err: err})
	}
	monitor.OnAbort = func(reason polling.AbortReason) {
		p.Send(AbortMsg{At: time.Now(), Reason: reason})
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := monitor.Run(runCtx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		p.Send(StoppedMsg{Err: err})
	}()

	_, err := p.Run()
	cancel()
	<-done

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("monitor UI failed: %w", err)
	}
	return nil
}
