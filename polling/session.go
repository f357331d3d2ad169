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
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-ucomms"
)

// Session errors
var (
	ErrRequestPending    = errors.New("request already pending")
	ErrSessionNotRunning = errors.New("session is not running")
	ErrSessionRunning    = errors.New("session is already running")
)

// Session runs a Monitor in the background and coordinates outgoing frames
// with the frames it receives. It suits a link where the peer answers each
// command with a frame of its own.
type Session struct {
	transport  ucomms.Transport
	monitor    *Monitor
	pending    atomic.Pointer[request]
	cancelFunc context.CancelFunc
	done       chan struct{}
	runErr     error
	// OnFrame is called for frames that did not answer a Request
	OnFrame func(frame ucomms.FrameContext)
	// OnError receives monitor errors
	OnError    func(err error)
	writeMutex sync.Mutex
	stopMutex  sync.Mutex
	running    atomic.Bool
}

// request is a Request waiting for its reply frame
type request struct {
	ctx       context.Context
	result    chan ucomms.FrameContext
	createdAt time.Time
}

// NewSession creates a session over transport. Options configure the monitor.
func NewSession(transport ucomms.Transport, interp ucomms.Interpreter, opts ...Option) (*Session, error) {
	monitor, err := NewMonitor(transport, interp, opts...)
	if err != nil {
		return nil, err
	}
	s := &Session{
		transport: transport,
		monitor:   monitor,
	}
	s.setupEventHandlers()
	return s, nil
}

func (s *Session) setupEventHandlers() {
	s.monitor.OnFrame = func(frame ucomms.FrameContext) {
		if s.deliverReply(frame) {
			return
		}
		if s.OnFrame != nil {
			s.OnFrame(frame)
		}
	}
	s.monitor.OnError = func(err error) {
		if s.OnError != nil {
			s.OnError(err)
		}
	}
}

// deliverReply hands frame to the pending request, if any
func (s *Session) deliverReply(frame ucomms.FrameContext) bool {
	req := s.pending.Load()
	if req == nil || !s.pending.CompareAndSwap(req, nil) {
		return false
	}
	if req.ctx.Err() != nil {
		// The requester gave up; treat the frame as unsolicited
		return false
	}
	select {
	case req.result <- frame:
	default:
	}
	return true
}

// Start runs the monitor in a background goroutine
func (s *Session) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.done = done
	s.runErr = nil
	s.stopMutex.Unlock()

	go func() {
		defer close(done)
		defer s.running.Store(false)

		err := s.monitor.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.stopMutex.Lock()
			s.runErr = err
			s.stopMutex.Unlock()
		}
	}()
	return nil
}

// Stop cancels the monitor and waits for it to finish
func (s *Session) Stop() error {
	s.stopMutex.Lock()
	cancel, done := s.cancelFunc, s.done
	s.cancelFunc = nil
	s.stopMutex.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Err returns the error that ended the last run, if any
func (s *Session) Err() error {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	return s.runErr
}

// IsRunning reports whether the monitor goroutine is active
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// Monitor returns the underlying monitor
func (s *Session) Monitor() *Monitor {
	return s.monitor
}

// HasPendingRequest reports whether a Request is waiting for its reply
func (s *Session) HasPendingRequest() bool {
	return s.pending.Load() != nil
}

// Send writes one frame without waiting for a reply
func (s *Session) Send(payload []byte) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	return ucomms.SendFrame(s.transport, payload)
}

// Request sends payload and waits for the next frame received from the peer
func (s *Session) Request(ctx context.Context, timeout time.Duration, payload []byte) (ucomms.FrameContext, error) {
	if !s.running.Load() {
		return ucomms.FrameContext{}, ErrSessionNotRunning
	}

	// Serialize requests so each reply has exactly one owner
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	if s.pending.Load() != nil {
		return ucomms.FrameContext{}, ErrRequestPending
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &request{
		ctx:       reqCtx,
		result:    make(chan ucomms.FrameContext, 1),
		createdAt: time.Now(),
	}
	// Registered before writing so a fast reply cannot be missed
	s.pending.Store(req)
	defer s.pending.CompareAndSwap(req, nil)

	if err := ucomms.SendFrame(s.transport, payload); err != nil {
		return ucomms.FrameContext{}, fmt.Errorf("request failed: %w", err)
	}

	select {
	case frame := <-req.result:
		return frame, nil
	case <-reqCtx.Done():
		return ucomms.FrameContext{}, fmt.Errorf("no reply after %v: %w", time.Since(req.createdAt).Round(time.Millisecond), reqCtx.Err())
	}
}
