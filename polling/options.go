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

	"github.com/rs/zerolog"
)

// Option is a functional option for configuring a Monitor
type Option func(*Monitor) error

// WithConfig replaces the whole configuration
func WithConfig(config *Config) Option {
	return func(m *Monitor) error {
		if config == nil {
			config = DefaultConfig()
		}
		cfg := *config
		m.config = &cfg
		return nil
	}
}

// WithIdleTimeout sets how long a partial frame may wait for its next byte
func WithIdleTimeout(timeout time.Duration) Option {
	return func(m *Monitor) error {
		m.config.IdleTimeout = timeout
		return nil
	}
}

// WithHistorySize sets how many completed frames are remembered
func WithHistorySize(size int) Option {
	return func(m *Monitor) error {
		m.config.HistorySize = size
		return nil
	}
}

// WithChunkSize overrides the read buffer size
func WithChunkSize(size int) Option {
	return func(m *Monitor) error {
		m.config.ChunkSize = size
		return nil
	}
}

// WithMaxReadErrors sets how many consecutive read errors end Run
func WithMaxReadErrors(limit int) Option {
	return func(m *Monitor) error {
		m.config.MaxReadErrors = limit
		return nil
	}
}

// WithLogger sets the logger for monitor events. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Monitor) error {
		m.log = logger
		return nil
	}
}
