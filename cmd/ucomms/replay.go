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
	"fmt"

	"github.com/ZaparooProject/go-ucomms/internal/scenario"
	"github.com/spf13/cobra"
)

func newReplayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file.toml>...",
		Short: "Replay scenario files through the parser",
		Long: `Each scenario names a hex byte stream and the frames, error kinds and
final parser state it must produce. The command fails if any scenario does.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			failed := 0
			total := 0
			for _, path := range args {
				f, err := scenario.Load(path)
				if err != nil {
					return err
				}
				for _, r := range scenario.RunAll(f) {
					total++
					a.out.Scenario(r)
					if !r.Passed() {
						failed++
					}
				}
			}
			a.log.Debug().Int("total", total).Int("failed", failed).Msg("replay finished")
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, total)
			}
			return nil
		},
	}
}
