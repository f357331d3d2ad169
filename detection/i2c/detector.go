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

package i2c

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/detection"
	i2ctransport "github.com/ZaparooProject/go-ucomms/transport/i2c"
)

const (
	// countByteLimit is the largest count a target can report in one
	// 32-byte transaction
	countByteLimit = 31

	defaultProbeTimeout = 500 * time.Millisecond
)

// busInfo describes one I2C adapter
type busInfo struct {
	Path   string // Device path, e.g. "/dev/i2c-1"
	Number int
}

// detector implements detection.Detector for I2C targets
type detector struct {
	listBuses func() ([]busInfo, error)
	peek      func(busPath string, addr uint16) (int, error)
	open      func(bus busInfo, addr uint16) (ucomms.Transport, error)
	addr      uint16
}

// New creates a new I2C detector looking for targets at the default address
func New() detection.Detector {
	return &detector{
		listBuses: findBuses,
		peek:      peekCount,
		open: func(bus busInfo, addr uint16) (ucomms.Transport, error) {
			return i2ctransport.New(strconv.Itoa(bus.Number), addr)
		},
		addr: i2ctransport.DefaultAddress,
	}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return string(ucomms.TransportI2C)
}

// Detect lists I2C adapters. Outside Passive mode each candidate is asked
// for its pending byte count and then probed for frames.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	buses, err := d.listBuses()
	if err != nil {
		return nil, err
	}
	if len(buses) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	var devices []detection.DeviceInfo
	for _, bus := range buses {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if device, ok := d.inspect(ctx, bus, opts); ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func (d *detector) inspect(ctx context.Context, bus busInfo, opts *detection.Options) (detection.DeviceInfo, bool) {
	devicePath := fmt.Sprintf("%s:0x%02X", bus.Path, d.addr)
	if detection.IsPathIgnored(devicePath, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  string(ucomms.TransportI2C),
		Path:       devicePath,
		Name:       fmt.Sprintf("I2C target on %s", bus.Path),
		Confidence: detection.Low,
		Metadata: map[string]string{
			"bus":     bus.Path,
			"address": fmt.Sprintf("0x%02X", d.addr),
		},
	}
	if opts.Mode == detection.Passive {
		return device, true
	}

	// A missing target NACKs the read
	pending, err := d.peek(bus.Path, d.addr)
	if err != nil || pending > countByteLimit {
		return detection.DeviceInfo{}, false
	}
	device.Confidence = detection.Medium
	device.Metadata["pending"] = strconv.Itoa(pending)

	t, err := d.open(bus, d.addr)
	if err != nil {
		device.Metadata["probe_error"] = err.Error()
		return device, true
	}
	defer func() { _ = t.Close() }()

	timeout := defaultProbeTimeout
	if opts.Timeout > 0 && opts.Timeout < timeout {
		timeout = opts.Timeout
	}
	result, err := detection.Probe(ctx, t, opts.Mode, timeout)
	if err != nil {
		device.Metadata["probe_error"] = err.Error()
		return device, true
	}
	if result.Confirmed() {
		device.Confidence = detection.High
		if result.Reply != nil {
			device.Metadata["reply"] = string(result.Reply)
		}
	}
	return device, true
}
