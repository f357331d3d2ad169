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

package main

import (
	"context"
	"errors"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/internal/tui"
	"github.com/ZaparooProject/go-ucomms/polling"
	"github.com/spf13/cobra"
)

func newListenCmd(a *app) *cobra.Command {
	var useTUI bool

	cmd := &cobra.Command{
		Use:   "listen [port]",
		Short: "Print frames received from a device",
		Long: `Open a serial port (or an I2C target with --i2c) and print every frame,
protocol error and aborted frame until interrupted. Noise outside frames is
discarded and counted.

Example usage:
  ucomms listen /dev/ttyACM0
  ucomms listen --baud 115200 --idle-timeout 200ms
  ucomms listen --i2c 1:0x24 --tui`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var port string
			if len(args) > 0 {
				port = args[0]
			}
			t, err := a.openTransport(cmd.Context(), port)
			if err != nil {
				return err
			}
			defer func() { _ = t.Close() }()

			monitor, err := polling.NewMonitor(t, nil, a.monitorOptions()...)
			if err != nil {
				return err
			}
			if useTUI {
				return tui.Run(cmd.Context(), monitor, t.Type())
			}
			return a.listen(cmd.Context(), monitor)
		},
	}
	cmd.Flags().BoolVar(&useTUI, "tui", false, "interactive terminal monitor")
	return cmd
}

// listen prints monitor events until ctx is done
func (a *app) listen(ctx context.Context, monitor *polling.Monitor) error {
	monitor.OnFrame = func(frame ucomms.FrameContext) {
		a.out.Frame(frame, time.Now())
	}
	monitor.OnError = a.out.Error
	monitor.OnAbort = a.out.Abort

	err := monitor.Run(ctx)
	a.out.Metrics(monitor.Metrics())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
