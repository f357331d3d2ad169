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

package uart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/ZaparooProject/go-ucomms/detection"
	uarttransport "github.com/ZaparooProject/go-ucomms/transport/uart"
	"go.bug.st/serial/enumerator"
)

const defaultProbeTimeout = 500 * time.Millisecond

// detector implements detection.Detector for USB serial ports
type detector struct {
	listPorts func() ([]*enumerator.PortDetails, error)
	open      func(path string) (ucomms.Transport, error)
}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{
		listPorts: enumerator.GetDetailedPortsList,
		open: func(path string) (ucomms.Transport, error) {
			return uarttransport.New(path)
		},
	}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return string(ucomms.TransportUART)
}

// Detect lists serial ports and, outside Passive mode, listens on each
// candidate for valid frames.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range preferCallout(ports) {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		device, ok := d.inspect(ctx, port, opts)
		if ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func (d *detector) inspect(
	ctx context.Context,
	port *enumerator.PortDetails,
	opts *detection.Options,
) (detection.DeviceInfo, bool) {
	if port == nil || detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}
	// Built-in UARTs without USB details are almost never a microcontroller
	// link, and opening them can hang on some platforms
	if !port.IsUSB {
		return detection.DeviceInfo{}, false
	}

	vidpid := detection.FormatVIDPID(port.VID, port.PID)
	if detection.IsBlocked(vidpid, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  string(ucomms.TransportUART),
		Path:       port.Name,
		Name:       deviceName(port),
		Confidence: detection.Low,
		Metadata: map[string]string{
			"vidpid": vidpid,
		},
	}
	if vendor, ok := detection.VendorName(port.VID); ok {
		device.Confidence = detection.Medium
		device.Metadata["vendor"] = vendor
	}
	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}

	if opts.Mode == detection.Passive {
		return device, true
	}

	result, err := d.probe(ctx, port.Name, opts)
	if err != nil {
		device.Metadata["probe_error"] = err.Error()
		return device, true
	}
	if result.Confirmed() {
		device.Confidence = detection.High
		device.Metadata["frames"] = fmt.Sprintf("%d", result.Frames)
		if result.Reply != nil {
			device.Metadata["reply"] = string(result.Reply)
		}
	}
	return device, true
}

func (d *detector) probe(ctx context.Context, path string, opts *detection.Options) (detection.ProbeResult, error) {
	t, err := d.open(path)
	if err != nil {
		return detection.ProbeResult{}, err
	}
	defer func() { _ = t.Close() }()

	timeout := defaultProbeTimeout
	if opts.Timeout > 0 && opts.Timeout < timeout {
		timeout = opts.Timeout
	}
	return detection.Probe(ctx, t, opts.Mode, timeout)
}

func deviceName(port *enumerator.PortDetails) string {
	if port.Product != "" {
		return port.Product
	}
	if vendor, ok := detection.VendorName(port.VID); ok {
		return vendor + " serial device"
	}
	return "USB serial device"
}

// preferCallout drops macOS /dev/tty.* entries that have a /dev/cu.*
// twin. Opening the tty side blocks until carrier detect.
func preferCallout(ports []*enumerator.PortDetails) []*enumerator.PortDetails {
	callout := make(map[string]bool)
	for _, p := range ports {
		if p != nil && strings.HasPrefix(p.Name, "/dev/cu.") {
			callout[strings.TrimPrefix(p.Name, "/dev/cu.")] = true
		}
	}

	out := make([]*enumerator.PortDetails, 0, len(ports))
	for _, p := range ports {
		if p == nil {
			continue
		}
		if strings.HasPrefix(p.Name, "/dev/tty.") && callout[strings.TrimPrefix(p.Name, "/dev/tty.")] {
			continue
		}
		out = append(out, p)
	}
	return out
}
