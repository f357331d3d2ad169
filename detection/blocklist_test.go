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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlocked(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		vidpid    string
		blocklist []string
		want      bool
	}{
		{name: "default entry", vidpid: "1546:01A7", blocklist: DefaultBlocklist(), want: true},
		{name: "lowercase", vidpid: "1546:01a8", blocklist: DefaultBlocklist(), want: true},
		{name: "whitespace", vidpid: " 0658:0200 ", blocklist: DefaultBlocklist(), want: true},
		{name: "arduino not blocked", vidpid: "2341:0043", blocklist: DefaultBlocklist(), want: false},
		{name: "empty id", vidpid: "", blocklist: []string{""}, want: false},
		{name: "custom list", vidpid: "1A86:7523", blocklist: []string{"1a86:7523"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsBlocked(tt.vidpid, tt.blocklist))
		})
	}
}

func TestParseVIDPID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		descriptor string
		want       string
	}{
		{descriptor: "VID:2341 PID:0043", want: "2341:0043"},
		{descriptor: "vendor=1a86 product=7523", want: "1A86:7523"},
		{descriptor: "vid=0403 pid=6001", want: "0403:6001"},
		{descriptor: "10c4:ea60", want: "10C4:EA60"},
		{descriptor: "not a device", want: ""},
		{descriptor: "12:34:56", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseVIDPID(tt.descriptor))
		})
	}
}

func TestFormatVIDPID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "2E8A:000A", FormatVIDPID("2e8a", "000a"))
	assert.Empty(t, FormatVIDPID("", "000a"))
}

func TestVendorName(t *testing.T) {
	t.Parallel()
	name, ok := VendorName("2341")
	assert.True(t, ok)
	assert.Equal(t, "Arduino", name)

	name, ok = VendorName("303a")
	assert.True(t, ok)
	assert.Equal(t, "Espressif", name)

	_, ok = VendorName("FFFF")
	assert.False(t, ok)
}
