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
	"strings"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/polling"
	"github.com/spf13/cobra"
)

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>...",
		Short: "Parse a captured byte stream offline",
		Long: `Run hex bytes through the same receiver used by listen, printing frames,
errors and aborts. Arguments are joined, so bytes may be split across them.

Example usage:
  ucomms decode 02 04 47 45 54 3A 03
  ucomms decode "02024110 0202424303"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := parseHex(strings.Join(args, ""))
			if err != nil {
				return err
			}
			return a.decode(data)
		},
	}
}

func (a *app) decode(data []byte) error {
	monitor, err := polling.NewMonitor(ucomms.NewMockTransport(), nil,
		polling.WithIdleTimeout(0),
		polling.WithHistorySize(a.config.History),
		polling.WithLogger(a.log))
	if err != nil {
		return err
	}
	monitor.OnFrame = func(frame ucomms.FrameContext) {
		a.out.Frame(frame, time.Now())
	}
	monitor.OnError = a.out.Error
	monitor.OnAbort = a.out.Abort

	if err := monitor.Feed(data); err != nil {
		return err
	}
	a.out.Metrics(monitor.Metrics())
	return nil
}
