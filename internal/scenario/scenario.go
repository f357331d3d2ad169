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

// Package scenario replays recorded byte streams through the frame parser
// and checks the frames, errors and final state they produce.
package scenario

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ZaparooProject/go-ucomms"
)

// ErrInvalidScenario is returned for scenario files that cannot be replayed
var ErrInvalidScenario = errors.New("invalid scenario")

// File is the top level of a scenario file
type File struct {
	Scenarios []Scenario `toml:"scenario"`
}

// Scenario is one byte stream and what parsing it must produce
type Scenario struct {
	Name string `toml:"name"`
	// Input is hex, whitespace allowed
	Input string `toml:"input"`
	// State is the expected parser state after the last byte, if set
	State string `toml:"state"`
	// Frames are the payloads handed to the interpreter, in order
	Frames []string `toml:"frames"`
	// Errors are the expected error kinds, in order
	Errors []string `toml:"errors"`
	// Resync resets the context after an error and keeps going
	Resync bool `toml:"resync"`
}

// Result is the outcome of replaying one scenario
type Result struct {
	Name       string
	Frames     []string
	Errors     []ucomms.ErrorKind
	Mismatches []string
	State      ucomms.State
	Consumed   int
}

// Passed reports whether the replay matched every expectation
func (r Result) Passed() bool {
	return len(r.Mismatches) == 0
}

// Load reads and validates a scenario file
func Load(path string) (*File, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("load scenarios (%s): %w", path, err)
	}
	return checked(&f, meta)
}

// Decode reads and validates scenarios from r
func Decode(r io.Reader) (*File, error) {
	var f File
	meta, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}
	return checked(&f, meta)
}

func checked(f *File, meta toml.MetaData) (*File, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidScenario, strings.Join(keys, ", "))
	}
	for i := range f.Scenarios {
		if err := f.Scenarios[i].Validate(); err != nil {
			return nil, fmt.Errorf("scenario[%d]: %w", i, err)
		}
	}
	return f, nil
}

// Validate checks that the scenario can be replayed
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if _, err := s.Bytes(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
	}
	for _, k := range s.Errors {
		if _, err := ucomms.ParseErrorKind(k); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
		}
	}
	if s.State != "" {
		if _, err := parseState(s.State); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
		}
	}
	return nil
}

// Bytes decodes Input
func (s *Scenario) Bytes() ([]byte, error) {
	clean := strings.Join(strings.Fields(s.Input), "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("bad input hex: %w", err)
	}
	return b, nil
}

// Run replays s through a fresh context. Without Resync the replay stops
// at the first error.
func Run(s *Scenario) Result {
	result := Result{Name: s.Name}
	input, err := s.Bytes()
	if err != nil {
		result.Mismatches = append(result.Mismatches, err.Error())
		return result
	}

	var ctx ucomms.FrameContext
	interp := ucomms.InterpreterFunc(func(f ucomms.FrameContext) error {
		result.Frames = append(result.Frames, string(f.Payload()))
		return nil
	})
	for _, b := range input {
		result.Consumed++
		if err := ucomms.Process(&ctx, b, interp); err != nil {
			result.Errors = append(result.Errors, ucomms.GetErrorKind(err))
			if !s.Resync {
				break
			}
			ctx.Reset()
		}
	}
	result.State = ctx.State()
	result.Mismatches = compare(s, &result)
	return result
}

// RunAll replays every scenario in f
func RunAll(f *File) []Result {
	results := make([]Result, 0, len(f.Scenarios))
	for i := range f.Scenarios {
		results = append(results, Run(&f.Scenarios[i]))
	}
	return results
}

func compare(s *Scenario, r *Result) []string {
	var out []string

	frames := s.Frames
	if frames == nil {
		frames = []string{}
	}
	got := r.Frames
	if got == nil {
		got = []string{}
	}
	if !slices.Equal(frames, got) {
		out = append(out, fmt.Sprintf("frames: want %q, got %q", frames, got))
	}

	kinds := make([]string, 0, len(r.Errors))
	for _, k := range r.Errors {
		kinds = append(kinds, k.String())
	}
	wantKinds := s.Errors
	if wantKinds == nil {
		wantKinds = []string{}
	}
	if !slices.Equal(wantKinds, kinds) {
		out = append(out, fmt.Sprintf("errors: want %v, got %v", wantKinds, kinds))
	}

	if s.State != "" {
		want, _ := parseState(s.State)
		if want != r.State {
			out = append(out, fmt.Sprintf("state: want %s, got %s", want, r.State))
		}
	}
	return out
}

func parseState(s string) (ucomms.State, error) {
	for _, st := range []ucomms.State{
		ucomms.StateIdle,
		ucomms.StateAwaitingLength,
		ucomms.StateAccumulatingPayload,
		ucomms.StateFrameComplete,
	} {
		if st.String() == s {
			return st, nil
		}
	}
	return ucomms.StateIdle, fmt.Errorf("unknown state %q", s)
}
