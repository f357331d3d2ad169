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
	"fmt"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/polling"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	repeat   int
	interval time.Duration
	reply    bool
	hex      bool
}

func newSendCmd(a *app) *cobra.Command {
	var opts sendOptions

	cmd := &cobra.Command{
		Use:   "send <payload> [port]",
		Short: "Encode a payload as a frame and write it",
		Long: `Send one frame, or the same frame repeatedly with --repeat.
Payloads may not contain 0x02, 0x03 or 0x10 and are at most 62 bytes.

Example usage:
  ucomms send LED:ON /dev/ttyACM0
  ucomms send PING --reply
  ucomms send --hex "4C 45 44" --repeat 0 --interval 1s`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(args[0], opts.hex)
			if err != nil {
				return err
			}
			// Reject before touching the device
			if _, err := ucomms.EncodeFrame(payload); err != nil {
				return err
			}

			var port string
			if len(args) > 1 {
				port = args[1]
			}
			t, err := a.openTransport(cmd.Context(), port)
			if err != nil {
				return err
			}
			defer func() { _ = t.Close() }()

			return a.send(cmd.Context(), t, payload, opts)
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&opts.repeat, "repeat", "n", 1, "number of frames to send, 0 sends until interrupted")
	flags.DurationVarP(&opts.interval, "interval", "i", time.Second, "delay between repeated frames")
	flags.BoolVarP(&opts.reply, "reply", "r", false, "wait for a reply frame after each send")
	flags.BoolVarP(&opts.hex, "hex", "x", false, "payload is hex")
	return cmd
}

func (a *app) send(ctx context.Context, t ucomms.Transport, payload []byte, opts sendOptions) error {
	retrying := ucomms.NewTransportWithRetry(t, ucomms.DefaultRetryConfig())

	var session *polling.Session
	if opts.reply {
		var err error
		session, err = polling.NewSession(retrying, nil, a.monitorOptions()...)
		if err != nil {
			return err
		}
		session.OnFrame = func(frame ucomms.FrameContext) { a.out.Frame(frame, time.Now()) }
		session.OnError = a.out.Error
		if err := session.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = session.Stop() }()
	}

	for i := 0; opts.repeat == 0 || i < opts.repeat; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(opts.interval):
			}
		}

		if session == nil {
			if err := ucomms.SendFrame(retrying, payload); err != nil {
				return fmt.Errorf("send %d failed: %w", i+1, err)
			}
			a.out.Sent(payload)
			continue
		}

		reply, err := session.Request(ctx, a.config.Timeout, payload)
		a.out.Sent(payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.out.Error(err)
			continue
		}
		a.out.Frame(reply, time.Now())
	}
	return nil
}
