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
	"fmt"
)

// Frame parser errors. Each one identifies a distinct protocol violation;
// none of them is fatal and the stream can be resynchronized on the next START.
var (
	ErrInvalidContext = errors.New("ucomms: invalid frame context")
	ErrMissingStart   = errors.New("ucomms: byte received outside a frame")
	ErrLengthMismatch = errors.New("ucomms: accumulated length does not match declared length")
	ErrBufferOverflow = errors.New("ucomms: frame buffer overflow")
	ErrNotReady       = errors.New("ucomms: length byte not received")

	// ErrInterpreter wraps an error returned by the command interpreter
	ErrInterpreter = errors.New("ucomms: command interpreter failed")
	// ErrControlByteInPayload is returned when encoding a payload the receiver would misparse
	ErrControlByteInPayload = errors.New("ucomms: payload contains a control byte")
	// ErrUnknownCommand is returned by Router for unregistered verbs
	ErrUnknownCommand = errors.New("ucomms: unknown command")
)

// Transport errors
var (
	ErrTransportTimeout    = errors.New("transport timeout")
	ErrTransportRead       = errors.New("transport read failed")
	ErrTransportWrite      = errors.New("transport write failed")
	ErrTransportClosed     = errors.New("transport closed")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrCommunicationFailed = errors.New("communication failed")
)

// ErrorKind classifies parser errors
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidContext
	KindMissingStart
	KindLengthMismatch
	KindBufferOverflow
	KindNotReady
	KindInterpreter
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidContext:
		return "InvalidContext"
	case KindMissingStart:
		return "MissingStart"
	case KindLengthMismatch:
		return "LengthMismatch"
	case KindBufferOverflow:
		return "BufferOverflow"
	case KindNotReady:
		return "NotReady"
	case KindInterpreter:
		return "Interpreter"
	default:
		return "Unknown"
	}
}

// ParseErrorKind is the inverse of ErrorKind.String
func ParseErrorKind(s string) (ErrorKind, error) {
	for k := KindUnknown; k <= KindInterpreter; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown error kind %q", s)
}

// FrameError carries the byte and parser state that caused a violation
type FrameError struct {
	Err   error
	Op    string
	State State
	Kind  ErrorKind
	Byte  byte
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s byte 0x%02X in state %s: %v", e.Op, e.Byte, e.State, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

func newFrameError(op string, b byte, state State, err error) *FrameError {
	return &FrameError{
		Op:    op,
		Byte:  b,
		State: state,
		Kind:  kindOf(err),
		Err:   err,
	}
}

func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidContext):
		return KindInvalidContext
	case errors.Is(err, ErrMissingStart):
		return KindMissingStart
	case errors.Is(err, ErrLengthMismatch):
		return KindLengthMismatch
	case errors.Is(err, ErrBufferOverflow):
		return KindBufferOverflow
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	case errors.Is(err, ErrInterpreter):
		return KindInterpreter
	default:
		return KindUnknown
	}
}

// GetErrorKind returns the kind of a parser error, KindUnknown for anything else
func GetErrorKind(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return kindOf(err)
}

// IsProtocolViolation reports whether err was caused by malformed input
func IsProtocolViolation(err error) bool {
	switch GetErrorKind(err) {
	case KindMissingStart, KindLengthMismatch, KindBufferOverflow, KindNotReady:
		return true
	default:
		return false
	}
}

// IsResyncable reports whether the stream can continue after err by
// discarding bytes until the next START. Interpreter failures leave the
// framing intact and are resyncable as well.
func IsResyncable(err error) bool {
	return IsProtocolViolation(err) || GetErrorKind(err) == KindInterpreter
}

// ErrorType represents the category of a transport error
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that will not resolve on retry
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates an error that may resolve on retry
	ErrorTypeTransient
	// ErrorTypeTimeout indicates the operation ran out of time
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError wraps an error from a transport with context
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error; transient and timeout errors are retryable
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// IsRetryable reports whether a transport operation should be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed):
		return true
	default:
		return false
	}
}

// GetErrorType classifies a transport error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	switch {
	case errors.Is(err, ErrTransportTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
