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

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/detection"
	"github.com/ZaparooProject/go-ucomms/polling"
	"github.com/ZaparooProject/go-ucomms/transport/i2c"
	"github.com/ZaparooProject/go-ucomms/transport/uart"
)

// openTransport opens the link named by the configuration. With no port
// and no I2C target, the best detected serial device is used.
func (a *app) openTransport(ctx context.Context, portArg string) (ucomms.Transport, error) {
	if a.config.I2C != "" {
		bus, addr, err := parseI2CTarget(a.config.I2C)
		if err != nil {
			return nil, err
		}
		t, err := i2c.New(bus, addr)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		a.log.Info().Str("bus", bus).Msg("opened I2C bus")
		return t, nil
	}

	port := portArg
	if port == "" {
		port = a.config.Port
	}
	if port == "" {
		detected, err := a.detectPort(ctx)
		if err != nil {
			return nil, err
		}
		port = detected
	}

	t, err := uart.New(port, uart.WithBaudRate(a.config.Baud))
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport: %w", err)
	}
	a.log.Info().Str("port", port).Int("baud", a.config.Baud).Msg("opened serial port")
	return t, nil
}

func (a *app) detectPort(ctx context.Context) (string, error) {
	opts := detection.DefaultOptions()
	opts.Timeout = a.config.Timeout
	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errNoPort, err)
	}
	for _, d := range devices {
		if d.Transport == string(ucomms.TransportUART) {
			a.log.Info().Str("port", d.Path).Stringer("confidence", d.Confidence).Msg("using detected port")
			return d.Path, nil
		}
	}
	return "", errNoPort
}

func (a *app) monitorOptions() []polling.Option {
	return []polling.Option{
		polling.WithIdleTimeout(a.config.IdleTimeout),
		polling.WithHistorySize(a.config.History),
		polling.WithLogger(a.log.With().Str("component", "monitor").Logger()),
	}
}
