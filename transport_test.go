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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    1 * time.Microsecond, // Minimal delay for fast tests
		MaxBackoff:        10 * time.Microsecond,
		BackoffMultiplier: 2.0,
	}
}

func TestSendFrame(t *testing.T) {
	t.Parallel()

	t.Run("writes encoded frame", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		require.NoError(t, SendFrame(mock, []byte("ON")))
		assert.Equal(t, []byte{StartByte, 2, 'O', 'N', StopByte}, mock.Written())
	})

	t.Run("rejects unencodable payload", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		err := SendFrame(mock, []byte{'a', StartByte})
		require.ErrorIs(t, err, ErrControlByteInPayload)
		assert.Empty(t, mock.Written())
	})

	t.Run("propagates write error", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.SetWriteError(ErrTransportClosed)
		err := SendFrame(mock, []byte("ON"))
		assert.ErrorIs(t, err, ErrTransportClosed)
	})
}

func TestSendAbort(t *testing.T) {
	t.Parallel()
	mock := NewMockTransport()
	require.NoError(t, SendAbort(mock))
	assert.Equal(t, []byte{EscByte}, mock.Written())
}

// shortWriter accepts at most limit bytes per call and fails the first
// failures calls with a transient error
type shortWriter struct {
	*MockTransport
	failures int
	limit    int
	calls    int
}

func (s *shortWriter) Write(data []byte) (int, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return 0, NewTransportError("write", "", ErrTransportWrite, ErrorTypeTransient)
	}
	if s.limit > 0 && len(data) > s.limit {
		data = data[:s.limit]
	}
	return s.MockTransport.Write(data)
}

func TestTransportWithRetry_New(t *testing.T) {
	t.Parallel()
	mock := NewMockTransport()

	wrapper := NewTransportWithRetry(mock, nil)
	assert.Equal(t, DefaultRetryConfig(), wrapper.config)

	custom := fastRetryConfig(5)
	wrapper = NewTransportWithRetry(mock, custom)
	assert.Same(t, custom, wrapper.config)
	assert.Equal(t, TransportMock, wrapper.Type())
	assert.True(t, wrapper.IsConnected())
}

func TestTransportWithRetry_Write(t *testing.T) {
	t.Parallel()
	tests := []struct {
		wantErr   error
		name      string
		failures  int
		limit     int
		attempts  int
		wantCalls int
		wantBytes int
	}{
		{name: "first try", attempts: 3, wantCalls: 1, wantBytes: 5},
		{name: "recovers after transient failure", failures: 2, attempts: 3, wantCalls: 3, wantBytes: 5},
		{
			name: "gives up", failures: 5, attempts: 3, wantCalls: 3,
			wantErr: ErrCommunicationFailed,
		},
		{name: "short writes continue", limit: 2, attempts: 3, wantCalls: 3, wantBytes: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := &shortWriter{MockTransport: NewMockTransport(), failures: tt.failures, limit: tt.limit}
			wrapper := NewTransportWithRetry(w, fastRetryConfig(tt.attempts))

			n, err := wrapper.Write([]byte{StartByte, 2, 'O', 'N', StopByte})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, []byte{StartByte, 2, 'O', 'N', StopByte}, w.Written())
			}
			assert.Equal(t, tt.wantBytes, n)
			assert.Equal(t, tt.wantCalls, w.calls)
		})
	}
}

func TestTransportWithRetry_PermanentWriteErrorNotRetried(t *testing.T) {
	t.Parallel()
	mock := NewMockTransport()
	mock.SetWriteError(NewTransportError("write", "", ErrDeviceNotFound, ErrorTypePermanent))
	wrapper := NewTransportWithRetry(mock, fastRetryConfig(5))

	_, err := wrapper.Write([]byte{EscByte})
	require.ErrorIs(t, err, ErrDeviceNotFound)
	assert.NotErrorIs(t, err, ErrCommunicationFailed)
}

func TestTransportWithRetry_ReadPassthrough(t *testing.T) {
	t.Parallel()
	mock := NewMockTransport([]byte("abc"))
	wrapper := NewTransportWithRetry(mock, fastRetryConfig(3))

	buf := make([]byte, 8)
	n, err := wrapper.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))

	mock.SetReadError(ErrTransportRead)
	_, err = wrapper.Read(buf)
	require.ErrorIs(t, err, ErrTransportRead)
	assert.Equal(t, 2, mock.ReadCalls(), "reads must never be retried")
}

func TestTransportWithRetry_Delegation(t *testing.T) {
	t.Parallel()
	mock := NewMockTransport()
	wrapper := NewTransportWithRetry(mock, nil)

	require.NoError(t, wrapper.SetTimeout(time.Second))
	assert.Equal(t, ReadParamsFor(mock), wrapper.ReadParams())

	wrapper.SetRetryConfig(fastRetryConfig(1))
	assert.Equal(t, 1, wrapper.config.MaxAttempts)

	require.NoError(t, wrapper.Close())
	assert.False(t, wrapper.IsConnected())
}

func TestReadParamsFor(t *testing.T) {
	t.Parallel()
	mock := NewMockTransport()
	params := ReadParamsFor(mock)
	assert.Equal(t, Capacity, params.ChunkSize)
	assert.Positive(t, params.ReadTimeout)

	tuned := tunedTransport{MockTransport: mock}
	assert.Equal(t, ReadParams{ChunkSize: 1}, ReadParamsFor(tuned))
}

type tunedTransport struct {
	*MockTransport
}

func (tunedTransport) ReadParams() ReadParams {
	return ReadParams{ChunkSize: 1}
}

func TestMockTransport_ChunkSplitting(t *testing.T) {
	t.Parallel()
	mock := NewMockTransport([]byte("abcdef"))
	buf := make([]byte, 4)

	n, err := mock.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf[:n]))
	assert.True(t, mock.Pending())

	n, err = mock.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ef", string(buf[:n]))
	assert.False(t, mock.Pending())

	n, err = mock.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n, "exhausted script reads as a timeout")

	require.NoError(t, mock.Close())
	_, err = mock.Read(buf)
	assert.True(t, errors.Is(err, ErrTransportClosed))
}
