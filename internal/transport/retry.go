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

// Package transport provides internal transport utilities
package transport

import (
	"context"
	"time"

	"github.com/ZaparooProject/go-ucomms"
)

// Operation is one attempt at a transport operation.
// Returns: data, again, error
//   - data: the result when the attempt succeeded
//   - again: true if the operation should be attempted again
//   - error: a permanent error that stops the loop
type Operation[T any] func() (T, bool, error)

// RetryConfig configures WithRetry
type RetryConfig struct {
	OnRetry     func() error
	Description string
	Port        string
	MaxRetries  int
	RetryDelay  time.Duration
}

// WithRetry runs operation until it succeeds, fails permanently or runs out
// of retries. Exhaustion is reported as a retryable ErrCommunicationFailed.
func WithRetry[T any](ctx context.Context, config RetryConfig, operation Operation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, again, err := operation()
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(); err != nil {
				return zero, err
			}
		}
		if err := sleep(ctx, config.RetryDelay); err != nil {
			return zero, err
		}
	}

	return zero, ucomms.NewTransportError(config.Description, config.Port,
		ucomms.ErrCommunicationFailed, ucomms.ErrorTypeTransient)
}

// Poll repeats operation every interval until it reports a result, timeout
// elapses or ctx is done. found is false when the timeout elapsed; that is
// not an error for a byte stream with nothing to say.
func Poll[T any](ctx context.Context, timeout, interval time.Duration, operation Operation[T]) (result T, found bool, err error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}

		result, again, err := operation()
		if err != nil {
			return zero, false, err
		}
		if !again {
			return result, true, nil
		}
		if !time.Now().Before(deadline) {
			return zero, false, nil
		}
		if err := sleep(ctx, interval); err != nil {
			return zero, false, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
