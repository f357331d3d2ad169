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


package ucomms

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDebug routes library debug output into a buffer for the duration
// of the test. It swaps package state, so callers must not run in parallel.
func captureDebug(t *testing.T, enabled bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := *Logger()
	SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	SetDebugEnabled(enabled)
	t.Cleanup(func() {
		SetLogger(prev)
		SetDebugEnabled(false)
	})
	return &buf
}

//nolint:paralleltest // swaps the package logger
func TestSendAbort_LogsWhenDebugEnabled(t *testing.T) {
	buf := captureDebug(t, true)
	mock := NewMockTransport()

	require.NoError(t, SendAbort(mock))
	assert.Equal(t, AbortSequence(), mock.Written())
	assert.Contains(t, buf.String(), `"message":"sending abort over mock"`)
}

//nolint:paralleltest // swaps the package logger
func TestSendAbort_SilentWhenDebugDisabled(t *testing.T) {
	buf := captureDebug(t, false)

	require.NoError(t, SendAbort(NewMockTransport()))
	assert.Empty(t, buf.String())
}
