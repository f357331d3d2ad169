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
	"fmt"
	"sort"
	"sync"
)

// Interpreter consumes completed frames.
//
// Interpret is called synchronously from Process with a copy of the
// completed context: Flags has FlagStopped, Buffer[:AccumulatedLength] is the
// payload and Buffer[AccumulatedLength] is the terminator. Any side effect of
// a command is the interpreter's business.
type Interpreter interface {
	Interpret(ctx FrameContext) error
}

// InterpreterFunc adapts a function to the Interpreter interface
type InterpreterFunc func(ctx FrameContext) error

// Interpret calls f(ctx)
func (f InterpreterFunc) Interpret(ctx FrameContext) error {
	return f(ctx)
}

// CommandSeparator splits a verb from its argument in a payload such as "GET:temp"
const CommandSeparator = ':'

// Command is a payload split into verb and argument
type Command struct {
	Verb string
	Args []byte
}

// ParseCommand splits a payload at the first separator. A payload without a
// separator is a bare verb such as "ON".
func ParseCommand(payload []byte) Command {
	if i := bytes.IndexByte(payload, CommandSeparator); i >= 0 {
		return Command{Verb: string(payload[:i]), Args: payload[i+1:]}
	}
	return Command{Verb: string(payload)}
}

// Handler handles one command verb
type Handler func(cmd Command) error

// Router is an Interpreter that dispatches frames by verb
type Router struct {
	handlers map[string]Handler
	fallback Handler
	mu       sync.RWMutex
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Handle registers h for verb, replacing any previous handler
func (r *Router) Handle(verb string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[verb] = h
}

// HandleDefault registers a handler for verbs without a dedicated handler
func (r *Router) HandleDefault(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Verbs returns the registered verbs in sorted order
func (r *Router) Verbs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	verbs := make([]string, 0, len(r.handlers))
	for v := range r.handlers {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}

// Interpret dispatches the payload of a completed frame
func (r *Router) Interpret(ctx FrameContext) error {
	cmd := ParseCommand(ctx.Payload())

	r.mu.RLock()
	h, ok := r.handlers[cmd.Verb]
	if !ok {
		h = r.fallback
	}
	r.mu.RUnlock()

	if h == nil {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Verb)
	}
	debugf("dispatching %q (%d arg bytes)", cmd.Verb, len(cmd.Args))
	return h(cmd)
}
