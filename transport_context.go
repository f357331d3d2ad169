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
	"context"
	"fmt"
)

// TransportContext is a Transport whose reads can be cancelled
type TransportContext interface {
	Transport

	// ReadContext reads like Read but returns early when ctx is done
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// transportContextAdapter wraps a Transport to provide context support
type transportContextAdapter struct {
	Transport
}

// ReadContext runs Read in a goroutine and waits for it or for ctx.
//
// When ctx wins, the pending Read still completes in the background into its
// own buffer and its bytes are dropped, so buf is never written after return.
func (t *transportContextAdapter) ReadContext(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("context cancelled before read: %w", ctx.Err())
	default:
	}

	type result struct {
		err  error
		data []byte
	}
	resultChan := make(chan result, 1)
	scratch := make([]byte, len(buf))

	go func() {
		n, err := t.Read(scratch)
		resultChan <- result{err: err, data: scratch[:n]}
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("context cancelled while waiting for data: %w", ctx.Err())
	case res := <-resultChan:
		n := copy(buf, res.data)
		return n, res.err
	}
}

// AsTransportContext converts a Transport to TransportContext
func AsTransportContext(t Transport) TransportContext {
	if tc, ok := t.(TransportContext); ok {
		return tc
	}
	return &transportContextAdapter{Transport: t}
}
