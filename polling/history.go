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
	"sync"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/eapache/queue"
)

// Entry is one completed frame remembered by History
type Entry struct {
	At    time.Time
	Frame ucomms.FrameContext
}

// Payload returns the frame payload
func (e Entry) Payload() []byte {
	return e.Frame.Payload()
}

// History is a bounded FIFO of completed frames. It is safe for concurrent use.
type History struct {
	q    *queue.Queue
	size int
	mu   sync.Mutex
}

// NewHistory creates a history holding at most size frames
func NewHistory(size int) *History {
	return &History{q: queue.New(), size: size}
}

// Add appends a frame, evicting the oldest one when full
func (h *History) Add(frame ucomms.FrameContext, at time.Time) {
	if h == nil || h.size <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for h.q.Length() >= h.size {
		h.q.Remove()
	}
	h.q.Add(Entry{Frame: frame, At: at})
}

// Len returns the number of remembered frames
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.q.Length()
}

// Entries returns the remembered frames, oldest first
func (h *History) Entries() []Entry {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, h.q.Length())
	for i := range out {
		out[i] = h.q.Get(i).(Entry) //nolint:forcetypeassert // only Entry values are queued
	}
	return out
}

// Last returns the most recent frame
func (h *History) Last() (Entry, bool) {
	if h == nil {
		return Entry{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.q.Length() == 0 {
		return Entry{}, false
	}
	return h.q.Get(h.q.Length() - 1).(Entry), true //nolint:forcetypeassert // only Entry values are queued
}

// Count returns how many remembered frames carry the same payload as frame
func (h *History) Count(frame *ucomms.FrameContext) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for i := 0; i < h.q.Length(); i++ {
		e := h.q.Get(i).(Entry) //nolint:forcetypeassert // only Entry values are queued
		if ucomms.PayloadEqual(&e.Frame, frame) {
			n++
		}
	}
	return n
}

// Clear forgets every frame
func (h *History) Clear() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.q = queue.New()
}
