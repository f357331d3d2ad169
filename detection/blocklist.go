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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns USB serial devices that must not be opened during
// detection: opening them resets or reconfigures the device.
// Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{
		"1546:01A7", // u-blox 7 GNSS receiver
		"1546:01A8", // u-blox 8 GNSS receiver
		"0658:0200", // Aeotec Z-Stick Z-Wave controller
		"10C4:8A2A", // Nortek HUSBZB-1 Z-Wave/Zigbee stick
	}
}

// knownVendors maps USB vendor IDs of microcontroller boards and USB serial
// bridges to a display name
var knownVendors = map[string]string{
	"2341": "Arduino",
	"2A03": "Arduino",
	"239A": "Adafruit",
	"1A86": "WCH CH340",
	"0403": "FTDI",
	"10C4": "Silicon Labs CP210x",
	"16C0": "Teensy",
	"2E8A": "Raspberry Pi",
	"0483": "STMicroelectronics",
	"303A": "Espressif",
}

// VendorName returns the display name for a known microcontroller vendor ID
func VendorName(vid string) (string, bool) {
	name, ok := knownVendors[strings.ToUpper(strings.TrimSpace(vid))]
	return name, ok
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// ParseVIDPID extracts VID:PID from the descriptor formats printed by
// common tools: "VID:1234 PID:5678", "vendor=1234 product=5678" and
// "1234:5678". It returns "" when no pair is found.
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := hexAfter(descriptor, "VID:", "VENDOR=", "VID=")
	pid := hexAfter(descriptor, "PID:", "PRODUCT=", "PID=")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if parts := strings.Split(descriptor, ":"); len(parts) == 2 && isHex(parts[0]) && isHex(parts[1]) {
		return descriptor
	}
	return ""
}

// FormatVIDPID joins a vendor and product ID as VID:PID
func FormatVIDPID(vid, pid string) string {
	if vid == "" || pid == "" {
		return ""
	}
	return strings.ToUpper(vid) + ":" + strings.ToUpper(pid)
}

// hexAfter returns the hex digits following the first marker found
func hexAfter(s string, markers ...string) string {
	for _, m := range markers {
		if idx := strings.Index(s, m); idx >= 0 {
			return extractHex(s[idx+len(m):])
		}
	}
	return ""
}

// extractHex extracts the first sequence of hex digits from a string.
func extractHex(s string) string {
	var result strings.Builder
	for _, r := range s {
		if isHexRune(r) {
			_, _ = result.WriteRune(r)
		} else if result.Len() > 0 {
			break
		}
	}
	return result.String()
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}

// isHex checks if a string contains only hexadecimal characters.
func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHexRune(r) {
			return false
		}
	}
	return true
}

// IsPathIgnored reports whether devicePath matches an entry of ignorePaths,
// comparing cleaned, case-folded paths.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	normalizedDevice := normalizedPath(devicePath)
	for _, ignorePath := range ignorePaths {
		if ignorePath == "" {
			continue
		}
		if devicePath == ignorePath || normalizedDevice == normalizedPath(ignorePath) {
			return true
		}
	}
	return false
}

// normalizedPath cleans a device path and folds case for Windows COM names
func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
