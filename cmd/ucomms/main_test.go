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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	testutil "github.com/ZaparooProject/go-ucomms/internal/testing"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func testApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	var out bytes.Buffer
	return &app{v: v, config: cfg, log: zerolog.Nop(), out: NewOutput(&out)}, &out
}

func TestDecodeCommand(t *testing.T) {
	t.Parallel()
	out, err := execute(t, "decode", "02 02 41 10", "02 02 42 43 03", "FF", "02 04 47 45 54 3A 03")
	require.NoError(t, err)

	assert.Contains(t, out, `"BC"`)
	assert.Contains(t, out, `"GET:"`)
	assert.Contains(t, out, "ABORT")
	assert.Contains(t, out, "frames completed 2")
	assert.Contains(t, out, "frames aborted   1")
	assert.Contains(t, out, "bytes discarded  1")
}

func TestDecodeCommand_BadHex(t *testing.T) {
	t.Parallel()
	_, err := execute(t, "decode", "0G")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid hex")
}

func TestReplayCommand(t *testing.T) {
	t.Parallel()
	out, err := execute(t, "replay", "../../internal/scenario/testdata/scenarios.toml")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS get command")
	assert.NotContains(t, out, "FAIL")
}

func TestReplayCommand_Failure(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[scenario]]
name = "expects the wrong payload"
input = "02 02 4F 4E 03"
frames = ["OFF"]
`), 0o600))

	out, err := execute(t, "replay", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 scenarios failed")
	assert.Contains(t, out, "FAIL expects the wrong payload")
}

func TestSendCommand_RejectsControlBytes(t *testing.T) {
	t.Parallel()
	_, err := execute(t, "send", "--hex", "41 03 42", "/dev/null-port")
	assert.ErrorIs(t, err, ucomms.ErrControlByteInPayload)
}

func TestConfigFromFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ucomms.toml")
	require.NoError(t, os.WriteFile(path, []byte("baud = 0\n"), 0o600))

	_, err := execute(t, "--config", path, "decode", "02 00 03")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baud must be positive")
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		values  map[string]any
		name    string
		wantErr string
	}{
		{name: "defaults", values: nil},
		{name: "zero timeout", values: map[string]any{keyTimeout: 0}, wantErr: "timeout must be positive"},
		{name: "negative idle", values: map[string]any{keyIdleTimeout: -time.Second}, wantErr: "idle_timeout"},
		{name: "negative history", values: map[string]any{keyHistory: -1}, wantErr: "history"},
		{name: "bad i2c", values: map[string]any{keyI2C: "1:0x99"}, wantErr: "invalid i2c address"},
		{name: "good i2c", values: map[string]any{keyI2C: "1:0x24"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := viper.New()
			setDefaults(v)
			for k, val := range tt.values {
				v.Set(k, val)
			}
			cfg, err := loadConfig(v)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 9600, cfg.Baud)
			assert.Equal(t, 500*time.Millisecond, cfg.IdleTimeout)
		})
	}
}

func TestParseI2CTarget(t *testing.T) {
	t.Parallel()
	bus, addr, err := parseI2CTarget("/dev/i2c-1:0x24")
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-1", bus)
	assert.Equal(t, uint16(0x24), addr)

	bus, addr, err = parseI2CTarget("1")
	require.NoError(t, err)
	assert.Equal(t, "1", bus)
	assert.Zero(t, addr)

	_, _, err = parseI2CTarget(":0x24")
	assert.Error(t, err)
}

func TestFormatPayload(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"LED:ON"`, formatPayload([]byte("LED:ON")))
	assert.Equal(t, "00 FF", formatPayload([]byte{0x00, 0xFF}))

	b, err := parsePayload("0x4C, 0x45", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("LE"), b)
}

func TestSend_WithReplies(t *testing.T) {
	t.Parallel()
	a, out := testApp(t)
	dev := testutil.NewVirtualDevice()

	err := a.send(context.Background(), dev, []byte("LED:ON"), sendOptions{repeat: 2, interval: time.Millisecond, reply: true})
	require.NoError(t, err)

	assert.Len(t, dev.Received(), 2)
	assert.Contains(t, out.String(), `"ACK:LED"`)
}

func TestSend_FireAndForget(t *testing.T) {
	t.Parallel()
	a, out := testApp(t)
	dev := testutil.NewVirtualDevice()
	dev.Handler = nil

	err := a.send(context.Background(), dev, []byte("PING"), sendOptions{repeat: 3, interval: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING"), []byte("PING"), []byte("PING")}, dev.Received())
	assert.Equal(t, 3, bytes.Count(out.Bytes(), []byte("SENT")))
}

func TestSend_ReplyTimeoutIsReported(t *testing.T) {
	t.Parallel()
	a, out := testApp(t)
	a.config.Timeout = 20 * time.Millisecond
	dev := testutil.NewVirtualDevice()
	dev.Handler = nil

	err := a.send(context.Background(), dev, []byte("PING"), sendOptions{repeat: 1, reply: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "no reply")
}
