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

package polling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// events collects monitor callbacks from any goroutine
type events struct {
	frames []ucomms.FrameContext
	errs   []error
	aborts []AbortReason
	mu     sync.Mutex
}

func (e *events) attach(m *Monitor) {
	m.OnFrame = func(f ucomms.FrameContext) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.frames = append(e.frames, f)
	}
	m.OnError = func(err error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.errs = append(e.errs, err)
	}
	m.OnAbort = func(r AbortReason) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.aborts = append(e.aborts, r)
	}
}

func (e *events) payloads() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.frames))
	for _, f := range e.frames {
		out = append(out, string(f.Payload()))
	}
	return out
}

func (e *events) errors() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.errs...)
}

func (e *events) abortReasons() []AbortReason {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]AbortReason(nil), e.aborts...)
}

func frameBytes(t *testing.T, payload string) []byte {
	t.Helper()
	b, err := ucomms.EncodeFrame([]byte(payload))
	require.NoError(t, err)
	return b
}

func newTestMonitor(t *testing.T, transport ucomms.Transport, opts ...Option) (*Monitor, *events) {
	t.Helper()
	if transport == nil {
		transport = ucomms.NewMockTransport()
	}
	m, err := NewMonitor(transport, nil, opts...)
	require.NoError(t, err)
	ev := &events{}
	ev.attach(m)
	return m, ev
}

func TestNewMonitor(t *testing.T) {
	t.Parallel()

	t.Run("WithDefaultConfig", func(t *testing.T) {
		t.Parallel()
		m, err := NewMonitor(ucomms.NewMockTransport(), nil)
		require.NoError(t, err)
		assert.Equal(t, *DefaultConfig(), m.Config())
		assert.Equal(t, ModeHunting, m.Mode())
		assert.False(t, m.IsRunning())
	})

	t.Run("WithOptions", func(t *testing.T) {
		t.Parallel()
		m, err := NewMonitor(ucomms.NewMockTransport(), nil,
			WithIdleTimeout(50*time.Millisecond),
			WithHistorySize(4),
			WithChunkSize(8),
			WithMaxReadErrors(2),
		)
		require.NoError(t, err)
		cfg := m.Config()
		assert.Equal(t, 50*time.Millisecond, cfg.IdleTimeout)
		assert.Equal(t, 4, cfg.HistorySize)
		assert.Equal(t, 8, cfg.ChunkSize)
		assert.Equal(t, 2, cfg.MaxReadErrors)
	})

	t.Run("NilTransport", func(t *testing.T) {
		t.Parallel()
		_, err := NewMonitor(nil, nil)
		assert.ErrorIs(t, err, ErrNilTransport)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		t.Parallel()
		_, err := NewMonitor(ucomms.NewMockTransport(), nil, WithHistorySize(-1))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("WithConfigCopies", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{IdleTimeout: time.Second}
		m, err := NewMonitor(ucomms.NewMockTransport(), nil, WithConfig(cfg))
		require.NoError(t, err)
		cfg.IdleTimeout = 0
		assert.Equal(t, time.Second, m.Config().IdleTimeout)
	})
}

func TestMonitor_FeedFrames(t *testing.T) {
	t.Parallel()
	m, ev := newTestMonitor(t, nil)

	stream := append(frameBytes(t, "GET:"), frameBytes(t, "ON")...)
	stream = append(stream, frameBytes(t, "")...)
	require.NoError(t, m.Feed(stream))

	assert.Equal(t, []string{"GET:", "ON", ""}, ev.payloads())
	assert.Empty(t, ev.errors())

	metrics := m.Metrics()
	assert.Equal(t, int64(len(stream)), metrics.BytesRead)
	assert.Equal(t, int64(3), metrics.FramesCompleted)
	assert.Zero(t, metrics.BytesDiscarded)
	assert.False(t, metrics.LastFrameAt.IsZero())
	assert.Equal(t, ModeHunting, m.Mode())
}

func TestMonitor_DiscardsNoiseBeforeStart(t *testing.T) {
	t.Parallel()
	m, ev := newTestMonitor(t, nil)

	stream := append([]byte{'x', 'y', ucomms.StopByte, 'z'}, frameBytes(t, "OFF")...)
	require.NoError(t, m.Feed(stream))

	assert.Equal(t, []string{"OFF"}, ev.payloads())
	assert.Empty(t, ev.errors(), "noise outside a frame is not an error")
	assert.Equal(t, int64(4), m.Metrics().BytesDiscarded)
}

func TestMonitor_ResyncAfterProtocolError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		wantErr   error
		name      string
		bad       []byte
		discarded int64
	}{
		{
			name:      "length mismatch",
			bad:       []byte{ucomms.StartByte, 5, 'A', ucomms.StopByte, 'n', 'o', 'i', 's', 'e'},
			wantErr:   ucomms.ErrLengthMismatch,
			discarded: 5,
		},
		{
			name:      "oversized length",
			bad:       []byte{ucomms.StartByte, 70, 'A', 'B'},
			wantErr:   ucomms.ErrBufferOverflow,
			discarded: 2,
		},
		{
			name:      "stop before length",
			bad:       []byte{ucomms.StartByte, ucomms.StopByte},
			wantErr:   ucomms.ErrNotReady,
			discarded: 0,
		},
		{
			name:      "payload longer than declared",
			bad:       []byte{ucomms.StartByte, 1, 'A', 'B', 'C', ucomms.StopByte},
			wantErr:   ucomms.ErrBufferOverflow,
			discarded: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ev := newTestMonitor(t, nil)

			require.NoError(t, m.Feed(append(append([]byte(nil), tt.bad...), frameBytes(t, "OK")...)))

			errs := ev.errors()
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], tt.wantErr)
			assert.True(t, ucomms.IsProtocolViolation(errs[0]))
			assert.Equal(t, []string{"OK"}, ev.payloads())

			metrics := m.Metrics()
			assert.Equal(t, int64(1), metrics.ProtocolErrors)
			assert.Equal(t, tt.discarded, metrics.BytesDiscarded)
		})
	}
}

func TestMonitor_EscapeAbort(t *testing.T) {
	t.Parallel()
	m, ev := newTestMonitor(t, nil)

	require.NoError(t, m.Feed([]byte{0x02, 2, 'A', 0x10, 0x02, 2, 'B', 'C', 0x03}))

	assert.Equal(t, []string{"BC"}, ev.payloads())
	assert.Equal(t, []AbortReason{AbortEscape}, ev.abortReasons())
	assert.Equal(t, int64(1), m.Metrics().FramesAborted)
}

func TestMonitor_EscapeOutsideFrameIsQuiet(t *testing.T) {
	t.Parallel()
	m, ev := newTestMonitor(t, nil)

	require.NoError(t, m.Feed([]byte{ucomms.EscByte, ucomms.EscByte}))
	assert.Empty(t, ev.abortReasons())
	assert.Zero(t, m.Metrics().BytesDiscarded)
}

func TestMonitor_RestartAbort(t *testing.T) {
	t.Parallel()
	m, ev := newTestMonitor(t, nil)

	require.NoError(t, m.Feed([]byte{0x02, 3, 'A', 0x02, 1, 'B', 0x03}))

	assert.Equal(t, []string{"B"}, ev.payloads())
	assert.Equal(t, []AbortReason{AbortRestart}, ev.abortReasons())
}

func TestMonitor_InterpreterError(t *testing.T) {
	t.Parallel()
	failure := errors.New("unsupported")
	router := ucomms.NewRouter()
	router.Handle("ON", func(ucomms.Command) error { return failure })

	m, err := NewMonitor(ucomms.NewMockTransport(), router)
	require.NoError(t, err)
	ev := &events{}
	ev.attach(m)

	require.NoError(t, m.Feed(append(frameBytes(t, "ON"), frameBytes(t, "ON")...)))

	assert.Equal(t, []string{"ON", "ON"}, ev.payloads())
	errs := ev.errors()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], failure)
	assert.ErrorIs(t, errs[0], ucomms.ErrInterpreter)

	metrics := m.Metrics()
	assert.Equal(t, int64(2), metrics.FramesCompleted)
	assert.Equal(t, int64(2), metrics.InterpreterErrors)
	assert.Zero(t, metrics.ProtocolErrors)
}

func TestMonitor_IdleTimeoutOffline(t *testing.T) {
	t.Parallel()
	m, ev := newTestMonitor(t, nil, WithIdleTimeout(100*time.Millisecond))

	require.NoError(t, m.Feed([]byte{ucomms.StartByte, 3, 'A'}))
	assert.Equal(t, ModeInFrame, m.Mode())

	m.CheckIdle(time.Now().Add(50 * time.Millisecond))
	assert.Empty(t, ev.abortReasons(), "not idle yet")

	m.CheckIdle(time.Now().Add(time.Second))
	assert.Equal(t, []AbortReason{AbortIdle}, ev.abortReasons())
	assert.Equal(t, ModeHunting, m.Mode())

	// The rest of the stale frame is noise now
	require.NoError(t, m.Feed([]byte{'B', 'C', ucomms.StopByte}))
	assert.Empty(t, ev.payloads())
	assert.Equal(t, int64(3), m.Metrics().BytesDiscarded)
}

func TestMonitor_IdleTimeoutDisabled(t *testing.T) {
	t.Parallel()
	m, ev := newTestMonitor(t, nil, WithIdleTimeout(0))

	require.NoError(t, m.Feed([]byte{ucomms.StartByte, 2, 'A'}))
	m.CheckIdle(time.Now().Add(time.Hour))
	require.NoError(t, m.Feed([]byte{'B', ucomms.StopByte}))

	assert.Empty(t, ev.abortReasons())
	assert.Equal(t, []string{"AB"}, ev.payloads())
}

func TestMonitor_History(t *testing.T) {
	t.Parallel()
	m, _ := newTestMonitor(t, nil, WithHistorySize(2))

	for _, p := range []string{"A", "B", "C"} {
		require.NoError(t, m.Feed(frameBytes(t, p)))
	}

	entries := m.History().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "B", string(entries[0].Payload()))
	assert.Equal(t, "C", string(entries[1].Payload()))
}

func TestMonitor_RunScriptedChunks(t *testing.T) {
	t.Parallel()
	mock := ucomms.NewMockTransport(
		[]byte{ucomms.StartByte, 4, 'G'},
		[]byte{'E', 'T', ':', ucomms.StopByte, ucomms.StartByte},
		[]byte{2, 'O', 'N', ucomms.StopByte},
	)
	m, ev := newTestMonitor(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		return m.Metrics().FramesCompleted == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []string{"GET:", "ON"}, ev.payloads())
	assert.False(t, m.IsRunning())
}

func TestMonitor_RunIdleTimeout(t *testing.T) {
	t.Parallel()
	transport := ucomms.NewBlockingMockTransport()
	m, ev := newTestMonitor(t, transport, WithIdleTimeout(30*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	transport.Push([]byte{ucomms.StartByte, 3, 'A'})
	require.Eventually(t, func() bool {
		return len(ev.abortReasons()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []AbortReason{AbortIdle}, ev.abortReasons())
	assert.Equal(t, int64(1), m.Metrics().FramesAborted)

	transport.Push(frameBytes(t, "OK"))
	require.Eventually(t, func() bool {
		return len(ev.payloads()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"OK"}, ev.payloads())
}

func TestMonitor_RunRejectsSecondRun(t *testing.T) {
	t.Parallel()
	transport := ucomms.NewBlockingMockTransport()
	m, _ := newTestMonitor(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()
	require.Eventually(t, m.IsRunning, time.Second, time.Millisecond)

	assert.ErrorIs(t, m.Run(ctx), ErrMonitorRunning)
	assert.ErrorIs(t, m.Feed([]byte{1}), ErrMonitorRunning)
}

func TestMonitor_RunStopsOnClose(t *testing.T) {
	t.Parallel()
	transport := ucomms.NewBlockingMockTransport()
	m, _ := newTestMonitor(t, transport)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()
	require.Eventually(t, m.IsRunning, time.Second, time.Millisecond)

	require.NoError(t, m.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ucomms.ErrTransportClosed)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestMonitor_RunReadErrorLimit(t *testing.T) {
	t.Parallel()
	mock := ucomms.NewMockTransport()
	mock.SetReadError(ucomms.ErrTransportRead)
	m, ev := newTestMonitor(t, mock, WithConfig(&Config{
		ReadErrorBackoff: time.Millisecond,
		MaxReadErrors:    3,
	}))

	err := m.Run(context.Background())
	require.ErrorIs(t, err, ErrTooManyReadErrors)
	assert.ErrorIs(t, err, ucomms.ErrTransportRead)
	assert.Equal(t, int64(3), m.Metrics().ReadErrors)
	assert.Len(t, ev.errors(), 3)
}

func TestMonitor_ReadErrorsResetOnSuccess(t *testing.T) {
	t.Parallel()
	transport := &flakyTransport{MockTransport: ucomms.NewMockTransport(frameBytes(t, "A"), frameBytes(t, "B")), failEvery: 2}
	m, _ := newTestMonitor(t, transport, WithConfig(&Config{
		ReadErrorBackoff: time.Millisecond,
		MaxReadErrors:    2,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	require.Eventually(t, func() bool {
		return m.Metrics().FramesCompleted == 2
	}, time.Second, 5*time.Millisecond)
}

// flakyTransport fails every failEvery-th read while scripted data remains
type flakyTransport struct {
	*ucomms.MockTransport
	failEvery int
	calls     int
	mu        sync.Mutex
}

func (f *flakyTransport) Read(buf []byte) (int, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls%f.failEvery == 1 && f.MockTransport.Pending()
	f.mu.Unlock()
	if fail {
		return 0, ucomms.ErrTransportRead
	}
	return f.MockTransport.Read(buf)
}

func TestMonitor_PauseResume(t *testing.T) {
	t.Parallel()

	t.Run("InitiallyNotPaused", func(t *testing.T) {
		t.Parallel()
		m, _ := newTestMonitor(t, nil)
		assert.False(t, m.IsPaused())
	})

	t.Run("Idempotent", func(t *testing.T) {
		t.Parallel()
		m, _ := newTestMonitor(t, nil)
		m.Pause()
		m.Pause()
		assert.True(t, m.IsPaused())
		m.Resume()
		m.Resume()
		assert.False(t, m.IsPaused())
	})

	t.Run("PausedMonitorDoesNotRead", func(t *testing.T) {
		t.Parallel()
		mock := ucomms.NewMockTransport(frameBytes(t, "ON"))
		m, _ := newTestMonitor(t, mock)
		m.Pause()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = m.Run(ctx) }()

		time.Sleep(30 * time.Millisecond)
		assert.Zero(t, mock.ReadCalls())

		m.Resume()
		require.Eventually(t, func() bool {
			return m.Metrics().FramesCompleted == 1
		}, time.Second, 5*time.Millisecond)
	})
}
