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
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyTransport answers every written frame with a fixed reply
type replyTransport struct {
	*ucomms.BlockingMockTransport
	reply []byte
}

func (r *replyTransport) Write(data []byte) (int, error) {
	if r.reply != nil {
		r.Push(r.reply)
	}
	return len(data), nil
}

func encoded(t *testing.T, payload string) []byte {
	t.Helper()
	out, err := ucomms.EncodeFrame([]byte(payload))
	require.NoError(t, err)
	return out
}

func TestProbe_PassiveDoesNothing(t *testing.T) {
	t.Parallel()
	mock := ucomms.NewMockTransport(encoded(t, "HELLO"))

	result, err := Probe(context.Background(), mock, Passive, time.Second)
	require.NoError(t, err)
	assert.False(t, result.Confirmed())
	assert.Zero(t, mock.ReadCalls())
}

func TestProbe_SafeSeesFrame(t *testing.T) {
	t.Parallel()
	stream := append([]byte{0xFF, 0x00}, encoded(t, "TEMP:21")...)
	mock := ucomms.NewMockTransport(stream)

	result, err := Probe(context.Background(), mock, Safe, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Confirmed())
	assert.Equal(t, int64(1), result.Frames)
	assert.Equal(t, int64(2), result.Discarded)
	assert.Empty(t, mock.Written())
}

func TestProbe_SafeSilentDevice(t *testing.T) {
	t.Parallel()
	mock := ucomms.NewMockTransport()

	result, err := Probe(context.Background(), mock, Safe, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, result.Confirmed())
}

func TestProbe_FullGetsReply(t *testing.T) {
	t.Parallel()
	tr := &replyTransport{
		BlockingMockTransport: ucomms.NewBlockingMockTransport(),
		reply:                 encoded(t, "PONG"),
	}

	result, err := Probe(context.Background(), tr, Full, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Confirmed())
	assert.Equal(t, []byte("PONG"), result.Reply)
}

func TestProbe_FullNoReply(t *testing.T) {
	t.Parallel()
	tr := &replyTransport{BlockingMockTransport: ucomms.NewBlockingMockTransport()}

	result, err := Probe(context.Background(), tr, Full, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, result.Confirmed())
	assert.Nil(t, result.Reply)
}
