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

	"github.com/ZaparooProject/go-ucomms/detection"
	"github.com/spf13/cobra"
)

func newPortsCmd(a *app) *cobra.Command {
	var (
		mode     string
		watch    bool
		interval time.Duration
		ignore   []string
	)

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports and I2C buses that may host a device",
		Long: `Run the registered detectors. passive only enumerates, safe also listens
on each candidate for a valid frame, full sends a PING frame and waits for a
reply. With --watch, devices are reported as they appear and disappear.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := detection.ParseMode(mode)
			if err != nil {
				return err
			}
			opts := detection.DefaultOptions()
			opts.Mode = m
			opts.Timeout = a.config.Timeout
			opts.IgnorePaths = ignore

			if watch {
				return a.watchPorts(cmd.Context(), &opts, interval)
			}
			devices, err := detection.DetectAllContext(cmd.Context(), &opts)
			if err != nil {
				return err
			}
			a.out.Devices(devices)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&mode, "mode", "m", detection.Passive.String(), "detection mode: passive, safe or full")
	flags.BoolVarP(&watch, "watch", "w", false, "keep scanning and report changes")
	flags.DurationVar(&interval, "interval", 2*time.Second, "scan interval for --watch")
	flags.StringSliceVar(&ignore, "ignore", nil, "device paths to skip")
	return cmd
}

func (a *app) watchPorts(ctx context.Context, opts *detection.Options, interval time.Duration) error {
	var last []detection.DeviceInfo
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		current, err := detection.DetectAllContext(ctx, opts)
		if err != nil && !errors.Is(err, detection.ErrNoDevicesFound) {
			a.log.Warn().Err(err).Msg("detection failed")
		}
		added, removed := detection.Diff(last, current)
		for _, d := range added {
			a.out.DeviceChange(d, true)
		}
		for _, d := range removed {
			a.out.DeviceChange(d, false)
		}
		if err == nil || errors.Is(err, detection.ErrNoDevicesFound) {
			last = current
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
