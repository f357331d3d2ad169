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

// Package detection finds devices that can carry the frame stream.
//
// Transport-specific detectors register themselves on import:
//
//	import _ "github.com/ZaparooProject/go-ucomms/detection/uart"
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no devices found")
	ErrDetectionTimeout    = errors.New("detection timed out")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	ErrNoDetectors         = errors.New("no detectors registered")
)

// Mode controls how intrusive detection may be
type Mode int

const (
	// Passive only enumerates; nothing is opened
	Passive Mode = iota
	// Safe opens candidate devices and listens without writing
	Safe
	// Full may write a probe frame and wait for a reply
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{Passive, Safe, Full} {
		if m.String() == s {
			return m, nil
		}
	}
	return Passive, fmt.Errorf("unknown detection mode %q", s)
}

// Confidence says how likely a device is to speak the protocol
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// DeviceInfo describes one candidate device
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

// Options configures detection
type Options struct {
	// Blocklist holds VID:PID pairs that are never opened
	Blocklist []string
	// IgnorePaths holds device paths that are skipped entirely
	IgnorePaths []string
	// Timeout bounds the whole detection run and each probe
	Timeout time.Duration
	Mode    Mode
}

// DefaultOptions returns passive detection with the default blocklist
func DefaultOptions() Options {
	return Options{
		Mode:      Passive,
		Timeout:   2 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds devices of one transport type
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Detector{}
)

// RegisterDetector adds d, replacing any detector for the same transport
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// Detectors returns the registered detectors ordered by transport name
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Detector, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

// DetectAll runs every registered detector with a background context
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext runs every registered detector and merges the results,
// highest confidence first. A detector failing with ErrNoDevicesFound or
// ErrUnsupportedPlatform does not fail the run.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	detectors := Detectors()
	if len(detectors) == 0 {
		return nil, ErrNoDetectors
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var devices []DeviceInfo
	var errs []error
	for _, d := range detectors {
		found, err := d.Detect(ctx, opts)
		devices = append(devices, found...)
		switch {
		case err == nil,
			errors.Is(err, ErrNoDevicesFound),
			errors.Is(err, ErrUnsupportedPlatform):
		default:
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
	}

	if ctx.Err() != nil && len(devices) == 0 {
		return nil, ErrDetectionTimeout
	}
	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Confidence != devices[j].Confidence {
			return devices[i].Confidence > devices[j].Confidence
		}
		return devices[i].Path < devices[j].Path
	})
	return devices, nil
}

// Diff compares two detection results by transport and path
func Diff(previous, current []DeviceInfo) (added, removed []DeviceInfo) {
	key := func(d DeviceInfo) string { return d.Transport + "|" + d.Path }

	seen := make(map[string]bool, len(previous))
	for _, d := range previous {
		seen[key(d)] = true
	}
	now := make(map[string]bool, len(current))
	for _, d := range current {
		now[key(d)] = true
		if !seen[key(d)] {
			added = append(added, d)
		}
	}
	for _, d := range previous {
		if !now[key(d)] {
			removed = append(removed, d)
		}
	}
	return added, removed
}

// String returns transport:path, the form accepted by the CLI
func (d DeviceInfo) String() string {
	return d.Transport + ":" + d.Path
}
