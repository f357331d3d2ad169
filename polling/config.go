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
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned for a config that cannot drive a monitor
var ErrInvalidConfig = errors.New("invalid monitor config")

// Config holds the monitor configuration
type Config struct {
	// IdleTimeout discards a frame in progress when no byte arrives for this
	// long. Zero disables the check.
	IdleTimeout time.Duration
	// ReadErrorBackoff is slept after a failed read before trying again
	ReadErrorBackoff time.Duration
	// HistorySize is the number of completed frames kept. Zero disables history.
	HistorySize int
	// ChunkSize overrides the transport's read buffer size when positive
	ChunkSize int
	// MaxReadErrors stops Run after this many consecutive read errors.
	// Zero never stops.
	MaxReadErrors int
}

// DefaultConfig returns the default monitor configuration
func DefaultConfig() *Config {
	return &Config{
		IdleTimeout:      500 * time.Millisecond,
		ReadErrorBackoff: 50 * time.Millisecond,
		HistorySize:      32,
		MaxReadErrors:    10,
	}
}

// Validate rejects negative values
func (c *Config) Validate() error {
	switch {
	case c.IdleTimeout < 0:
		return fmt.Errorf("%w: negative idle timeout %v", ErrInvalidConfig, c.IdleTimeout)
	case c.ReadErrorBackoff < 0:
		return fmt.Errorf("%w: negative read error backoff %v", ErrInvalidConfig, c.ReadErrorBackoff)
	case c.HistorySize < 0:
		return fmt.Errorf("%w: negative history size %d", ErrInvalidConfig, c.HistorySize)
	case c.ChunkSize < 0:
		return fmt.Errorf("%w: negative chunk size %d", ErrInvalidConfig, c.ChunkSize)
	case c.MaxReadErrors < 0:
		return fmt.Errorf("%w: negative read error limit %d", ErrInvalidConfig, c.MaxReadErrors)
	}
	return nil
}
