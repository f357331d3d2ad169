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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/rs/zerolog"
)

// Monitor errors
var (
	ErrMonitorRunning    = errors.New("monitor is already running")
	ErrTooManyReadErrors = errors.New("too many consecutive read errors")
	ErrNilTransport      = errors.New("transport cannot be nil")
)

// Monitor reads a transport continuously and feeds every byte to the frame
// parser. After a protocol error it discards bytes until the next START.
//
// Callbacks run on the goroutine calling Run or Feed and must not block for long.
type Monitor struct {
	transport ucomms.Transport
	interp    ucomms.Interpreter
	config    *Config
	history   *History
	// OnFrame is called for every completed frame, after the interpreter
	OnFrame func(frame ucomms.FrameContext)
	// OnError is called for protocol, interpreter and read errors
	OnError func(err error)
	// OnAbort is called when a partial frame is discarded
	OnAbort  func(reason AbortReason)
	log      zerolog.Logger
	state    ReceiverState
	frame    ucomms.FrameContext
	counters counters
	mode     atomic.Int32
	running  atomic.Bool
	isPaused atomic.Bool
}

// NewMonitor creates a monitor reading from transport. interp may be nil.
func NewMonitor(transport ucomms.Transport, interp ucomms.Interpreter, opts ...Option) (*Monitor, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}
	m := &Monitor{
		transport: transport,
		interp:    interp,
		config:    DefaultConfig(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if err := m.config.Validate(); err != nil {
		return nil, err
	}
	m.history = NewHistory(m.config.HistorySize)
	return m, nil
}

// Run reads until ctx is done, the transport is closed or the read error
// limit is reached. It returns ctx.Err() on cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrMonitorRunning
	}
	defer m.running.Store(false)

	params := ucomms.ReadParamsFor(m.transport)
	if m.config.ChunkSize > 0 {
		params.ChunkSize = m.config.ChunkSize
	}
	if params.ChunkSize <= 0 {
		params.ChunkSize = ucomms.Capacity
	}
	if params.ReadTimeout > 0 {
		if err := m.transport.SetTimeout(params.ReadTimeout); err != nil {
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	m.log.Debug().
		Str("transport", string(m.transport.Type())).
		Int("chunk", params.ChunkSize).
		Dur("idle_timeout", m.config.IdleTimeout).
		Msg("monitor started")

	tc := ucomms.AsTransportContext(m.transport)
	buf := make([]byte, params.ChunkSize)
	consecutive := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.isPaused.Load() {
			if err := sleepContext(ctx, 10*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		n, err := tc.ReadContext(ctx, buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, ucomms.ErrTransportClosed) {
				return fmt.Errorf("monitor stopped: %w", err)
			}

			consecutive++
			atomic.AddInt64(&m.counters.readErrors, 1)
			m.log.Warn().Err(err).Int("consecutive", consecutive).Msg("read failed")
			m.reportError(err)
			if m.config.MaxReadErrors > 0 && consecutive >= m.config.MaxReadErrors {
				return fmt.Errorf("%w: %w", ErrTooManyReadErrors, err)
			}
			if err := sleepContext(ctx, m.config.ReadErrorBackoff); err != nil {
				return err
			}
			continue
		}
		consecutive = 0

		now := time.Now()
		if n == 0 {
			m.checkIdle(now)
			if params.EmptyReadDelay > 0 {
				if err := sleepContext(ctx, params.EmptyReadDelay); err != nil {
					return err
				}
			}
			continue
		}
		m.feed(buf[:n], now)
	}
}

// Feed processes data as if it had been read from the transport. It is meant
// for offline decoding and fails while Run is active.
func (m *Monitor) Feed(data []byte) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrMonitorRunning
	}
	defer m.running.Store(false)
	m.feed(data, time.Now())
	return nil
}

// CheckIdle applies the idle timeout as of now. Run does this on every empty
// read; offline users of Feed call it themselves.
func (m *Monitor) CheckIdle(now time.Time) {
	m.checkIdle(now)
}

func (m *Monitor) feed(data []byte, now time.Time) {
	// The gap before this chunk counts, not the bytes inside it
	m.checkIdle(now)
	atomic.AddInt64(&m.counters.bytesRead, int64(len(data)))
	for _, b := range data {
		m.processByte(b, now)
	}
}

func (m *Monitor) processByte(b byte, now time.Time) {
	prev := m.frame.State()
	err := ucomms.Process(&m.frame, b, m.interp)

	if m.state.Mode == ModeHunting {
		m.hunt(b, err, now)
		return
	}
	m.state.Touch(now)

	switch {
	case err == nil && b == ucomms.StartByte:
		if prev == ucomms.StateAwaitingLength || prev == ucomms.StateAccumulatingPayload {
			m.abort(AbortRestart)
		}
		m.state.TransitionToInFrame(now)

	case err == nil && b == ucomms.EscByte:
		m.abort(AbortEscape)
		m.toHunting()

	case err == nil && m.frame.State() == ucomms.StateFrameComplete:
		m.complete(now)

	case err == nil:
		// LENGTH or payload byte

	case ucomms.GetErrorKind(err) == ucomms.KindInterpreter:
		atomic.AddInt64(&m.counters.interpreterErrors, 1)
		m.complete(now)
		m.reportError(err)

	default:
		atomic.AddInt64(&m.counters.protocolErrors, 1)
		m.log.Debug().Err(err).Str("frame", m.frame.String()).Msg("protocol error, resyncing")
		m.frame.Reset()
		m.toHunting()
		m.reportError(err)
	}
}

// hunt handles a byte while waiting for START. Anything the parser rejects
// outside a frame is dropped silently and counted.
func (m *Monitor) hunt(b byte, err error, now time.Time) {
	if err == nil && b == ucomms.StartByte {
		if m.state.Discarded > 0 {
			m.log.Debug().Int("discarded", m.state.Discarded).Msg("resynchronized")
		}
		m.state.TransitionToInFrame(now)
		m.mode.Store(int32(ModeInFrame))
		return
	}
	if err == nil {
		// ESC outside a frame
		return
	}
	m.state.Discarded++
	atomic.AddInt64(&m.counters.bytesDiscarded, 1)
}

func (m *Monitor) complete(now time.Time) {
	frame := m.frame
	atomic.AddInt64(&m.counters.framesCompleted, 1)
	atomic.StoreInt64(&m.counters.lastFrameAt, now.UnixNano())
	m.history.Add(frame, now)
	m.log.Debug().Int("length", int(frame.AccumulatedLength)).Bytes("payload", frame.Payload()).Msg("frame complete")
	m.toHunting()
	if m.OnFrame != nil {
		m.OnFrame(frame)
	}
}

func (m *Monitor) abort(reason AbortReason) {
	atomic.AddInt64(&m.counters.framesAborted, 1)
	m.log.Debug().Stringer("reason", reason).Msg("frame aborted")
	if m.OnAbort != nil {
		m.OnAbort(reason)
	}
}

func (m *Monitor) checkIdle(now time.Time) {
	if !m.state.IdleExpired(now, m.config.IdleTimeout) {
		return
	}
	m.frame.Reset()
	m.toHunting()
	m.abort(AbortIdle)
}

func (m *Monitor) toHunting() {
	m.state.TransitionToHunting()
	m.mode.Store(int32(ModeHunting))
}

func (m *Monitor) reportError(err error) {
	if m.OnError != nil {
		m.OnError(err)
	}
}

// Mode returns the receiver mode. Safe to call from any goroutine.
func (m *Monitor) Mode() ReceiverMode {
	return ReceiverMode(m.mode.Load())
}

// Metrics returns a snapshot of the counters. Safe to call from any goroutine.
func (m *Monitor) Metrics() Metrics {
	return m.counters.snapshot()
}

// History returns the completed frame history
func (m *Monitor) History() *History {
	return m.history
}

// Config returns a copy of the monitor configuration
func (m *Monitor) Config() Config {
	return *m.config
}

// IsRunning reports whether Run or Feed is active
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// Pause stops reading from the transport until Resume. Bytes sent meanwhile
// stay in the transport's buffers.
func (m *Monitor) Pause() {
	m.isPaused.Store(true)
}

// Resume continues reading after Pause
func (m *Monitor) Resume() {
	m.isPaused.Store(false)
}

// IsPaused reports whether the monitor is paused
func (m *Monitor) IsPaused() bool {
	return m.isPaused.Load()
}

// Close closes the underlying transport, which also ends Run
func (m *Monitor) Close() error {
	if err := m.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
