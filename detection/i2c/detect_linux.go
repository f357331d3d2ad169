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

//go:build linux

package i2c

import (
	"fmt"
	"io"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const (
	// i2cSlave is the ioctl command to set the target address
	i2cSlave = 0x0703

	// i2cFuncs is the ioctl command to get adapter functionality
	i2cFuncs = 0x0705

	// i2cFuncI2C indicates plain I2C support
	i2cFuncI2C = 0x00000001
)

// findBuses discovers I2C adapters that support plain I2C transfers
func findBuses() ([]busInfo, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C devices: %w", err)
	}

	buses := make([]busInfo, 0, len(matches))
	for _, path := range matches {
		var number int
		if _, err := fmt.Sscanf(filepath.Base(path), "i2c-%d", &number); err != nil {
			continue
		}

		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		funcs, err := unix.IoctlGetUint32(fd, i2cFuncs)
		_ = unix.Close(fd)
		if err != nil || funcs&i2cFuncI2C == 0 {
			continue
		}

		buses = append(buses, busInfo{Path: path, Number: number})
	}
	return buses, nil
}

// peekCount reads only the count byte from the target at addr
func peekCount(busPath string, addr uint16) (int, error) {
	fd, err := unix.Open(busPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", busPath, err)
	}
	defer func() { _ = unix.Close(fd) }()

	if err := unix.IoctlSetInt(fd, i2cSlave, int(addr)); err != nil {
		return 0, fmt.Errorf("failed to select address 0x%02X: %w", addr, err)
	}

	buf := make([]byte, 1)
	n, err := unix.Read(fd, buf)
	if err != nil {
		return 0, fmt.Errorf("no response at 0x%02X: %w", addr, err)
	}
	if n != 1 {
		return 0, io.ErrUnexpectedEOF
	}
	return int(buf[0]), nil
}
